package categorizer

import (
	"database/sql"
	"regexp"
	"strings"
)

const (
	// LabelSeparator splits a category label from its status (full-width colon).
	LabelSeparator = "："
	// PresenceMarker marks a line as carrying an advertisement relationship.
	PresenceMarker = "あり"
)

var brandProductPattern = regexp.MustCompile(`(.+?)『(.+?)』`)

// Block is one labelled line of a note together with the mentions extracted
// from it and from its continuation lines.
type Block struct {
	Label    string
	Mentions []string
}

// ParsedNote is the label-level view of one talent's ad note. Blocks keep
// source order; a label that appears twice yields two blocks.
type ParsedNote struct {
	Blocks []Block
}

// Labels returns the distinct input labels in order of first appearance.
func (p ParsedNote) Labels() []string {
	seen := make(map[string]struct{}, len(p.Blocks))
	out := make([]string, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if _, ok := seen[b.Label]; ok {
			continue
		}
		seen[b.Label] = struct{}{}
		out = append(out, b.Label)
	}
	return out
}

// ByLabel groups mentions by input label. Labels whose lines produced no
// mention are absent from the map.
func (p ParsedNote) ByLabel() map[string][]string {
	out := make(map[string][]string)
	for _, b := range p.Blocks {
		if len(b.Mentions) == 0 {
			continue
		}
		out[b.Label] = append(out[b.Label], b.Mentions...)
	}
	return out
}

// ParseAdNote scans a raw note. Lines of the form "label：status" open a new
// block; lines without a separator but with the presence marker continue the
// current block. Everything else is ignored.
func ParseAdNote(note string) ParsedNote {
	var parsed ParsedNote
	if note == "" {
		return parsed
	}
	current := -1
	for _, line := range strings.Split(normalizeLineEndings(note), "\n") {
		line = strings.TrimSpace(line)
		if label, status, ok := strings.Cut(line, LabelSeparator); ok {
			parsed.Blocks = append(parsed.Blocks, Block{Label: strings.TrimSpace(label)})
			current = len(parsed.Blocks) - 1
			status = strings.TrimSpace(status)
			if strings.Contains(status, PresenceMarker) {
				parsed.Blocks[current].Mentions = append(parsed.Blocks[current].Mentions, extractMentions(status)...)
			}
			continue
		}
		if current >= 0 && strings.Contains(line, PresenceMarker) {
			parsed.Blocks[current].Mentions = append(parsed.Blocks[current].Mentions, extractMentions(line)...)
		}
	}
	return parsed
}

// ParseAdNoteValue parses notes coming from loosely typed sources. Values
// that are not text yield an empty ParsedNote.
func ParseAdNoteValue(v any) ParsedNote {
	if note, ok := noteText(v); ok {
		return ParseAdNote(note)
	}
	return ParsedNote{}
}

func noteText(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case *string:
		if n == nil {
			return "", false
		}
		return *n, true
	case []byte:
		return string(n), true
	case sql.NullString:
		return n.String, n.Valid
	default:
		return "", false
	}
}

// extractMentions turns the text after the first presence marker into
// mentions. Bracketed "brand『product』" pairs are emitted individually;
// otherwise the remainder is kept verbatim.
func extractMentions(status string) []string {
	_, rest, ok := strings.Cut(status, PresenceMarker)
	if !ok {
		return nil
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	matches := brandProductPattern.FindAllStringSubmatch(rest, -1)
	if len(matches) == 0 {
		return []string{rest}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, formatMention(m[1], m[2]))
	}
	return out
}

func formatMention(brand, product string) string {
	return strings.TrimSpace(brand) + "『" + strings.TrimSpace(product) + "』"
}
