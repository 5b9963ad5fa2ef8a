package categorizer

// Result maps output categories to the mentions found for one talent, in
// source order. Absent categories read as empty.
type Result struct {
	mentions map[string][]string
}

// Mentions returns the mentions for category. The slice is never nil.
func (r Result) Mentions(category string) []string {
	m := r.mentions[category]
	out := make([]string, len(m))
	copy(out, m)
	return out
}

// Categories lists the canonical categories holding at least one mention.
func (r Result) Categories() []string {
	out := make([]string, 0, len(r.mentions))
	for _, c := range canonicalCategories {
		if len(r.mentions[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Map returns a copy of the non-empty buckets.
func (r Result) Map() map[string][]string {
	out := make(map[string][]string, len(r.mentions))
	for c, m := range r.mentions {
		out[c] = append([]string(nil), m...)
	}
	return out
}

// Len returns the total number of mentions.
func (r Result) Len() int {
	n := 0
	for _, m := range r.mentions {
		n += len(m)
	}
	return n
}

func (r *Result) add(category string, mentions []string) {
	if len(mentions) == 0 {
		return
	}
	if r.mentions == nil {
		r.mentions = make(map[string][]string)
	}
	r.mentions[category] = append(r.mentions[category], mentions...)
}

// Categorization is a Result plus the labels that fell through to OtherCategory.
type Categorization struct {
	Result   Result
	Unmapped []string
}

// Categorize parses note and buckets its mentions by output category.
func Categorize(note string, table *CorrespondenceTable) Result {
	return CategorizeParsed(ParseAdNote(note), table).Result
}

// CategorizeValue is Categorize for notes of unknown type; non-text values
// produce an empty Result.
func CategorizeValue(note any, table *CorrespondenceTable) Result {
	return CategorizeParsed(ParseAdNoteValue(note), table).Result
}

// CategorizeDetailed is Categorize that also reports unmapped labels.
func CategorizeDetailed(note string, table *CorrespondenceTable) Categorization {
	return CategorizeParsed(ParseAdNote(note), table)
}

// CategorizeParsed resolves every block label against table. Labels are
// matched exactly; anything unknown goes to OtherCategory.
func CategorizeParsed(parsed ParsedNote, table *CorrespondenceTable) Categorization {
	var out Categorization
	seen := make(map[string]struct{})
	for _, b := range parsed.Blocks {
		category, ok := table.Lookup(b.Label)
		if !ok {
			category = OtherCategory
			if _, dup := seen[b.Label]; !dup {
				seen[b.Label] = struct{}{}
				out.Unmapped = append(out.Unmapped, b.Label)
			}
		}
		out.Result.add(category, b.Mentions)
	}
	return out
}
