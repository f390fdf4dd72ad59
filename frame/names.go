package frame

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	nonWordSpace = regexp.MustCompile(`[^\w\s]`)
	nonWord      = regexp.MustCompile(`[^\w]`)
	underscores  = regexp.MustCompile(`_+`)
)

// StandardizeName is the header rule applied at ingest: trimmed, lower case,
// spaces to underscores, punctuation removed, runs of underscores collapsed.
func StandardizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "_")
	n = nonWordSpace.ReplaceAllString(n, "")
	return underscores.ReplaceAllString(n, "_")
}

// NormalizeName is the header rule applied by the clean stage. position is
// used to name columns whose name normalizes to nothing.
func NormalizeName(name string, position int) string {
	n := strings.TrimSpace(strings.ToLower(name))
	n = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(n)
	n = strings.ReplaceAll(n, "__", "_")
	n = nonWord.ReplaceAllString(n, "")
	if n == "" {
		return "col_" + strconv.Itoa(position)
	}
	if unicode.IsDigit(rune(n[0])) {
		n = "col_" + n
	}
	return n
}
