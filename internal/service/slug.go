package service

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackSlug = "module"

// Slugify derives a URL slug from a module's author and name. Accents are
// folded, letters lowercased, and runs of anything else collapsed to "-".
func Slugify(author, name string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, author+" "+name)
	if err != nil {
		folded = author + " " + name
	}

	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// UniqueSlug returns base, or base-1, base-2, ... when taken, and reserves the
// result in taken.
func UniqueSlug(base string, taken map[string]struct{}) string {
	slug := base
	for i := 1; ; i++ {
		if _, used := taken[slug]; !used {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	taken[slug] = struct{}{}
	return slug
}
