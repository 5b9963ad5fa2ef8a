package categorizer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrEmptyTable is returned when a correspondence file holds no usable entry.
	ErrEmptyTable = errors.New("correspondence table has no entries")
	// ErrMissingColumn is returned when a required talent column cannot be found.
	ErrMissingColumn = errors.New("required column not found")
)

// TalentParseOptions allows callers to choose which CSV columns map to talent fields.
// Columns are given by header name or 1-based "#N" index; empty means auto-detect.
type TalentParseOptions struct {
	IDColumn        string
	NameColumn      string
	AgeColumn       string
	GenderColumn    string
	TypeColumn      string
	AdNoteColumn    string
	AgencyURLColumn string
	// ExpandEscapes converts literal "\n" in notes into line breaks.
	ExpandEscapes bool
}

// TalentFileMetadata provides header information and automatic column suggestions.
type TalentFileMetadata struct {
	Columns   []string
	Suggested TalentParseOptions
}

// LoadCorrespondenceTable reads a two-column CSV/TSV file whose first row is a
// header. Duplicated input labels are returned separately; the first wins.
func LoadCorrespondenceTable(path string) (*CorrespondenceTable, []CorrespondenceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	table, dups, err := ReadCorrespondenceTable(f, delimiterFor(path))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return table, dups, nil
}

// ReadCorrespondenceTable parses a correspondence table from r. Either the
// whole table is returned or an error; never a partial table.
func ReadCorrespondenceTable(r io.Reader, comma rune) (*CorrespondenceTable, []CorrespondenceEntry, error) {
	rows, err := readDelimited(r, comma)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) <= 1 {
		return nil, nil, ErrEmptyTable
	}
	entries := make([]CorrespondenceEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		in, out := cleanCell(row[0]), cleanCell(row[1])
		if in == "" || out == "" {
			continue
		}
		entries = append(entries, CorrespondenceEntry{Input: in, Output: out})
	}
	if len(entries) == 0 {
		return nil, nil, ErrEmptyTable
	}
	table, dups := NewCorrespondenceTable(entries)
	return table, dups, nil
}

// WriteCorrespondenceTemplate writes a starter table mapping every canonical
// category to itself. An existing file is left untouched.
func WriteCorrespondenceTemplate(path string) (bool, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	if _, err := os.Stat(clean); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", clean, err)
	}
	if dir := filepath.Dir(clean); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create table dir: %w", err)
		}
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiterFor(clean)
	_ = w.Write([]string{"入力カテゴリ", "出力カテゴリ"})
	for _, c := range canonicalCategories {
		_ = w.Write([]string{c, c})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("encode template: %w", err)
	}
	if err := os.WriteFile(clean, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write template: %w", err)
	}
	return true, nil
}

// LoadTalents reads talent profiles from a CSV/TSV file with a header row.
func LoadTalents(path string, opts TalentParseOptions) ([]Talent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	talents, err := ReadTalents(f, delimiterFor(path), opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return talents, nil
}

// ReadTalents parses talent rows from r. Rows without a name are skipped; a
// repeated name replaces the earlier profile but keeps its position.
func ReadTalents(r io.Reader, comma rune, opts TalentParseOptions) ([]Talent, error) {
	rows, err := readDelimited(r, comma)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	cols, err := resolveTalentColumns(header, opts)
	if err != nil {
		return nil, err
	}
	if cols.Name.Index < 0 {
		return nil, fmt.Errorf("name column: %w", ErrMissingColumn)
	}
	if cols.AdNote.Index < 0 {
		return nil, fmt.Errorf("ad note column: %w", ErrMissingColumn)
	}
	talents := make([]Talent, 0, len(rows)-1)
	for _, row := range rows[1:] {
		t := Talent{
			ID:        cellAt(row, cols.ID.Index),
			Name:      cellAt(row, cols.Name.Index),
			Age:       cellAt(row, cols.Age.Index),
			Gender:    cellAt(row, cols.Gender.Index),
			Type:      cellAt(row, cols.Type.Index),
			AgencyURL: cellAt(row, cols.AgencyURL.Index),
		}
		if t.Name == "" {
			continue
		}
		if cols.AdNote.Index < len(row) {
			// Notes keep inner whitespace; only the outer edge is trimmed.
			t.AdNote = strings.TrimSpace(row[cols.AdNote.Index])
			if opts.ExpandEscapes {
				t.AdNote = ExpandEscapedNewlines(t.AdNote)
			}
		} else {
			t.NoNote = true
		}
		talents = append(talents, t)
	}
	return DedupeByName(talents), nil
}

// ReadTalentFileMetadata returns header information and automatic suggestions for talent files.
func ReadTalentFileMetadata(path string) (TalentFileMetadata, error) {
	meta := TalentFileMetadata{}
	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	rows, err := readDelimited(f, delimiterFor(path))
	if err != nil {
		return meta, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return meta, nil
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	meta.Columns = header
	cols, err := resolveTalentColumns(header, TalentParseOptions{})
	if err == nil {
		meta.Suggested = TalentParseOptions{
			IDColumn:        cols.ID.Title,
			NameColumn:      cols.Name.Title,
			AgeColumn:       cols.Age.Title,
			GenderColumn:    cols.Gender.Title,
			TypeColumn:      cols.Type.Title,
			AdNoteColumn:    cols.AdNote.Title,
			AgencyURLColumn: cols.AgencyURL.Title,
		}
	}
	return meta, nil
}

func delimiterFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func readDelimited(r io.Reader, comma rune) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

// findColumn returns the first header cell matching any candidate after
// width and case folding, or -1.
func findColumn(header []string, candidates []string) int {
	want := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		want[normalizeHeader(c)] = struct{}{}
	}
	for i, col := range header {
		if _, ok := want[normalizeHeader(col)]; ok {
			return i
		}
	}
	return -1
}

// column is a resolved talent column. Index is -1 when the file lacks it.
type column struct {
	Index int
	Title string
}

type talentColumns struct {
	ID, Name, Age, Gender, Type, AdNote, AgencyURL column
}

func resolveTalentColumns(header []string, opts TalentParseOptions) (talentColumns, error) {
	var cols talentColumns
	cand := currentCandidates()
	lookups := []struct {
		dst        *column
		pinned     string
		candidates []string
	}{
		{&cols.ID, opts.IDColumn, cand.ID},
		{&cols.Name, opts.NameColumn, cand.Name},
		{&cols.Age, opts.AgeColumn, cand.Age},
		{&cols.Gender, opts.GenderColumn, cand.Gender},
		{&cols.Type, opts.TypeColumn, cand.Type},
		{&cols.AdNote, opts.AdNoteColumn, cand.AdNote},
		{&cols.AgencyURL, opts.AgencyURLColumn, cand.AgencyURL},
	}
	for _, l := range lookups {
		idx := findColumn(header, l.candidates)
		if pinned := strings.TrimSpace(l.pinned); pinned != "" {
			var err error
			if idx, err = pinnedColumn(header, pinned); err != nil {
				return cols, err
			}
		}
		*l.dst = column{Index: idx, Title: columnTitle(header, idx)}
	}
	return cols, nil
}

// pinnedColumn resolves a header name (case-insensitive) or a 1-based "#N".
func pinnedColumn(header []string, pinned string) (int, error) {
	for i, col := range header {
		if strings.EqualFold(col, pinned) {
			return i, nil
		}
	}
	num, ok := strings.CutPrefix(pinned, "#")
	if !ok {
		return -1, fmt.Errorf("column %q: %w", pinned, ErrMissingColumn)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 1 {
		return -1, fmt.Errorf("invalid column index %q", pinned)
	}
	if n > len(header) {
		return -1, fmt.Errorf("column index %s is out of range", pinned)
	}
	return n - 1, nil
}

func columnTitle(header []string, idx int) string {
	switch {
	case idx < 0:
		return ""
	case idx < len(header) && header[idx] != "":
		return header[idx]
	default:
		return "#" + strconv.Itoa(idx+1)
	}
}
