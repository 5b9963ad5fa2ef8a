package categorizer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeLineEndings folds CRLF into LF. A lone CR is not a line break and
// stays inside its line.
func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ExpandEscapedNewlines turns literal "\n" sequences, as left by batch-mode
// database exports, into real line breaks.
func ExpandEscapedNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// normalizeHeader folds width and case so header candidates like "ＩＤ" and
// "id" compare equal. Only used for column detection, never for labels.
func normalizeHeader(s string) string {
	s = norm.NFKC.String(cleanCell(s))
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}
