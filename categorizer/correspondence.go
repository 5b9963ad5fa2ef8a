package categorizer

// CorrespondenceEntry maps one human-authored input label to an output category.
type CorrespondenceEntry struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// CorrespondenceTable is an immutable lookup from input label to output
// category. A nil table is valid and resolves every label to OtherCategory.
type CorrespondenceTable struct {
	entries []CorrespondenceEntry
	lookup  map[string]string
}

// NewCorrespondenceTable builds a table from entries. The first entry for a
// given input label wins; later duplicates are reported in the second return
// value so loaders can surface them.
func NewCorrespondenceTable(entries []CorrespondenceEntry) (*CorrespondenceTable, []CorrespondenceEntry) {
	t := &CorrespondenceTable{
		entries: make([]CorrespondenceEntry, 0, len(entries)),
		lookup:  make(map[string]string, len(entries)),
	}
	var dups []CorrespondenceEntry
	for _, e := range entries {
		if _, exists := t.lookup[e.Input]; exists {
			dups = append(dups, e)
			continue
		}
		t.lookup[e.Input] = e.Output
		t.entries = append(t.entries, e)
	}
	return t, dups
}

// TableFromMap builds a table from a plain label map. Iteration order of the
// entries is unspecified.
func TableFromMap(m map[string]string) *CorrespondenceTable {
	entries := make([]CorrespondenceEntry, 0, len(m))
	for in, out := range m {
		entries = append(entries, CorrespondenceEntry{Input: in, Output: out})
	}
	t, _ := NewCorrespondenceTable(entries)
	return t
}

// Lookup returns the output category for an exact input label.
func (t *CorrespondenceTable) Lookup(label string) (string, bool) {
	if t == nil {
		return "", false
	}
	out, ok := t.lookup[label]
	return out, ok
}

// Resolve returns the output category for label, or OtherCategory when the
// label has no exact entry.
func (t *CorrespondenceTable) Resolve(label string) string {
	if out, ok := t.Lookup(label); ok {
		return out
	}
	return OtherCategory
}

// Len returns the number of distinct input labels.
func (t *CorrespondenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the entries in load order.
func (t *CorrespondenceTable) Entries() []CorrespondenceEntry {
	if t == nil {
		return nil
	}
	out := make([]CorrespondenceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// NonCanonicalOutputs lists output categories that are not report columns.
// Mentions routed to them are kept in the result but never shown in a report.
func (t *CorrespondenceTable) NonCanonicalOutputs() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range t.entries {
		if IsCanonical(e.Output) {
			continue
		}
		if _, ok := seen[e.Output]; ok {
			continue
		}
		seen[e.Output] = struct{}{}
		out = append(out, e.Output)
	}
	return out
}
