package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/forgo/modhub/internal/model"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJob(w io.Writer, format string, job *model.Job) error {
	if format == "json" {
		return writeJSON(w, job)
	}

	fmt.Fprintf(w, "ID:        %s\n", job.ID)
	fmt.Fprintf(w, "Type:      %s\n", job.Type)
	fmt.Fprintf(w, "Name:      %s\n", job.Name)
	fmt.Fprintf(w, "Status:    %s (%d%%)\n", job.Status, job.Progress)
	fmt.Fprintf(w, "Actor:     %s\n", job.StartedBy)
	if job.DurationSeconds != nil {
		fmt.Fprintf(w, "Duration:  %ds\n", *job.DurationSeconds)
	}
	if job.Results != nil {
		fmt.Fprintf(w, "Result:    %s\n", job.Results.Summary)
		for _, e := range job.Results.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
	}
	if len(job.Logs) > 0 {
		fmt.Fprintln(w, "Logs:")
		for _, l := range job.Logs {
			fmt.Fprintf(w, "  %s [%s] %s\n", l.Timestamp.Format(time.RFC3339), strings.ToUpper(string(l.Level)), l.Message)
		}
	}
	return nil
}

func printJobs(w io.Writer, format string, jobs []*model.Job) error {
	if format == "json" {
		return writeJSON(w, jobs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tPROGRESS\tNAME\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			j.ID, j.Type, j.Status, j.Progress, j.Name, j.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printStats(w io.Writer, format string, stats model.JobStats) error {
	if format == "json" {
		return writeJSON(w, stats)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "total\t%d\n", stats.Total)
	fmt.Fprintf(tw, "pending\t%d\n", stats.Pending)
	fmt.Fprintf(tw, "running\t%d\n", stats.Running)
	fmt.Fprintf(tw, "completed\t%d\n", stats.Completed)
	fmt.Fprintf(tw, "failed\t%d\n", stats.Failed)
	fmt.Fprintf(tw, "cancelled\t%d\n", stats.Cancelled)
	return tw.Flush()
}
