package categorizer

import "sync"

// ColumnCandidates lists the header names tried, in order, when a talent
// file column is not pinned explicitly.
type ColumnCandidates struct {
	ID        []string `json:"id" yaml:"id"`
	Name      []string `json:"name" yaml:"name"`
	Age       []string `json:"age" yaml:"age"`
	Gender    []string `json:"gender" yaml:"gender"`
	Type      []string `json:"type" yaml:"type"`
	AdNote    []string `json:"adNote" yaml:"ad_note"`
	AgencyURL []string `json:"agencyUrl" yaml:"agency_url"`
}

var (
	candidatesMu     sync.RWMutex
	activeCandidates = builtinCandidates()
)

// builtinCandidates covers the report's own headers, the talents table
// column names and the headers seen in hand-made exports.
func builtinCandidates() ColumnCandidates {
	return ColumnCandidates{
		ID:        []string{"id", "talent_id", "タレントID"},
		Name:      []string{HeaderName, "name", "タレント", "氏名"},
		Age:       []string{HeaderAge, "age"},
		Gender:    []string{HeaderGender, "gender"},
		Type:      []string{HeaderType, "is_group", "type", "個人・グループ"},
		AdNote:    []string{"memo_cm", "ad_info", "広告出演", "CM出演", "広告情報", "cm"},
		AgencyURL: []string{HeaderAgencyURL, "other_blog_url", "agency_url", "url"},
	}
}

// SetColumnCandidates replaces the candidates used by the talent loaders.
// A nil field keeps the built-in list for that column.
func SetColumnCandidates(c ColumnCandidates) {
	merged := builtinCandidates()
	src, dst := c.fields(), merged.fields()
	for i := range src {
		if *src[i] != nil {
			*dst[i] = cloneStrings(*src[i])
		}
	}
	candidatesMu.Lock()
	activeCandidates = merged
	candidatesMu.Unlock()
}

func currentCandidates() ColumnCandidates {
	candidatesMu.RLock()
	defer candidatesMu.RUnlock()
	out := activeCandidates
	for _, f := range out.fields() {
		*f = cloneStrings(*f)
	}
	return out
}

func (c *ColumnCandidates) fields() []*[]string {
	return []*[]string{&c.ID, &c.Name, &c.Age, &c.Gender, &c.Type, &c.AdNote, &c.AgencyURL}
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append(make([]string, 0, len(values)), values...)
}
