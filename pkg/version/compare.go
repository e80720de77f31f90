package version

import (
	"sort"
	"strings"
)

// unknownRank ranks labels that are neither numeric nor a known pre-release tag
const unknownRank = 999

var preReleaseRanks = map[string]int{
	"alpha": 1,
	"beta":  2,
	"rc":    3,
}

// Compare returns a negative number when a < b, zero when they are equivalent
// and a positive number when a > b.
func Compare(a, b string) int {
	pa := splitParts(a)
	pb := splitParts(b)

	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}

	for i := 0; i < n; i++ {
		x := partAt(pa, i)
		y := partAt(pb, i)

		if isDigits(x) && isDigits(y) {
			if c := compareNumeric(x, y); c != 0 {
				return c
			}
			continue
		}

		if c := compareRank(x, y); c != 0 {
			return c
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}

	return 0
}

// Normalize strips a leading "v" from a tag name, e.g. "v1.0.0" -> "1.0.0".
// Case is preserved; only Compare lowercases.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "v") || strings.HasPrefix(tag, "V") {
		return tag[1:]
	}
	return tag
}

// Latest returns the greatest version in versions, or "" if versions is empty.
func Latest(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	sorted := make([]string, len(versions))
	copy(sorted, versions)
	SortDescending(sorted)
	return sorted[0]
}

// SortDescending sorts versions in place, greatest first.
func SortDescending(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) > 0
	})
}

func splitParts(v string) []string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "v")
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-'
	})
}

func partAt(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// compareNumeric compares two digit strings of any length without parsing
func compareNumeric(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}

// compareRank orders two parts of which at most one is numeric. A numeric
// part ranks as value+1000, which is above every label rank.
func compareRank(x, y string) int {
	if isDigits(x) {
		return 1
	}
	if isDigits(y) {
		return -1
	}
	rx, ry := labelRank(x), labelRank(y)
	switch {
	case rx < ry:
		return -1
	case rx > ry:
		return 1
	}
	return 0
}

func labelRank(part string) int {
	if r, ok := preReleaseRanks[part]; ok {
		return r
	}
	return unknownRank
}
