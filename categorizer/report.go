package categorizer

import "strings"

// Identity and trailing column headers of the report.
const (
	HeaderName      = "タレント名"
	HeaderAge       = "年齢"
	HeaderGender    = "性別"
	HeaderType      = "個人/グループ"
	HeaderAgencyURL = "事務所URL"
)

// Talent is one talent profile as delivered by a talent source.
type Talent struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Age       string `json:"age"`
	Gender    string `json:"gender"`
	Type      string `json:"type"`
	AdNote    string `json:"adNote"`
	AgencyURL string `json:"agencyUrl"`
	// NoNote marks a profile whose note is absent rather than empty.
	NoNote bool `json:"noNote,omitempty"`
}

// Note returns the ad note as a loosely typed value: nil when absent.
func (t Talent) Note() any {
	if t.NoNote {
		return nil
	}
	return t.AdNote
}

// DedupeByName keeps one profile per name: the last one seen, at the
// position where the name first appeared.
func DedupeByName(talents []Talent) []Talent {
	out := make([]Talent, 0, len(talents))
	position := make(map[string]int, len(talents))
	for _, t := range talents {
		if i, ok := position[t.Name]; ok {
			out[i] = t
			continue
		}
		position[t.Name] = len(out)
		out = append(out, t)
	}
	return out
}

// ReportRow is one talent's line in the report.
type ReportRow struct {
	Name      string   `json:"name"`
	Age       string   `json:"age"`
	Gender    string   `json:"gender"`
	Type      string   `json:"type"`
	Cells     []string `json:"cells"`
	AgencyURL string   `json:"agencyUrl"`
}

// Values flattens the row in header order.
func (r ReportRow) Values() []string {
	out := make([]string, 0, len(r.Cells)+5)
	out = append(out, r.Name, r.Age, r.Gender, r.Type)
	out = append(out, r.Cells...)
	return append(out, r.AgencyURL)
}

// Report is the tabular output ready for spreadsheet serialization.
type Report struct {
	Categories []string    `json:"categories"`
	Rows       []ReportRow `json:"rows"`
}

// Header returns the column titles: identity fields, categories, agency URL.
func (r Report) Header() []string {
	out := make([]string, 0, len(r.Categories)+5)
	out = append(out, HeaderName, HeaderAge, HeaderGender, HeaderType)
	out = append(out, r.Categories...)
	return append(out, HeaderAgencyURL)
}

// BuildRows categorizes every talent and lays out one row per talent with one
// cell per selected category. Rows follow the order of talents; columns follow
// canonical order regardless of the order of selected.
func BuildRows(talents []Talent, table *CorrespondenceTable, selected []string) Report {
	report := Report{
		Categories: FilterCategories(selected),
		Rows:       make([]ReportRow, 0, len(talents)),
	}
	for _, t := range talents {
		res := CategorizeValue(t.Note(), table)
		report.Rows = append(report.Rows, buildRow(t, res, report.Categories))
	}
	return report
}

func buildRow(t Talent, res Result, categories []string) ReportRow {
	row := ReportRow{
		Name:      t.Name,
		Age:       t.Age,
		Gender:    t.Gender,
		Type:      t.Type,
		Cells:     make([]string, len(categories)),
		AgencyURL: t.AgencyURL,
	}
	for i, c := range categories {
		row.Cells[i] = formatCell(res.mentions[c])
	}
	return row
}

var escapedControlReplacer = strings.NewReplacer(`\r`, " ", `\t`, " ")

// formatCell joins mentions one per line and blanks out literal "\r" and "\t"
// escape sequences left over from the database export.
func formatCell(mentions []string) string {
	return escapedControlReplacer.Replace(strings.Join(mentions, "\n"))
}
