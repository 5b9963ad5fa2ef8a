package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/Handydigital-dev/cmlist/internal/talentdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFilterOverridesConfig(t *testing.T) {
	defaults := categorizer.SearchConfig{Genders: []int{1}, ModifiedSince: "2023-01-01", Limit: 1000}

	f, err := (&queryCmd{Type: []int{1}, Limit: 20}).filter(defaults)
	require.NoError(t, err)
	assert.Equal(t, []talentdb.GroupType{talentdb.Group}, f.Types)
	assert.Equal(t, []talentdb.GenderCode{talentdb.Male}, f.Genders)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), f.ModifiedSince)
	assert.Equal(t, 20, f.Limit)
}

func TestQueryFilterByName(t *testing.T) {
	f, err := (&queryCmd{Name: []string{"A", "B", "C"}, Type: []int{1}}).filter(categorizer.SearchConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, f.Names)
	assert.Empty(t, f.Types)
	assert.Equal(t, 3, f.Limit)
	assert.Equal(t, talentdb.NameModifiedSince, f.ModifiedSince)
}

func TestQueryFilterTrimsNames(t *testing.T) {
	f, err := (&queryCmd{Name: []string{" A ", "", "B"}}).filter(categorizer.SearchConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, f.Names)
	assert.Equal(t, 2, f.Limit)

	_, err = (&queryCmd{Name: []string{" ", ""}}).filter(categorizer.SearchConfig{})
	assert.Error(t, err)
}

func TestQueryFilterRejectsInvalid(t *testing.T) {
	for _, c := range []queryCmd{
		{Type: []int{2}},
		{Gender: []int{4}},
		{Limit: 10001},
		{Limit: -1},
		{Since: "yesterday"},
	} {
		_, err := c.filter(categorizer.SearchConfig{})
		assert.Error(t, err, "%+v", c)
	}
}

func TestInitKeepsDSNOverrideOutOfConfigFile(t *testing.T) {
	dir := t.TempDir()
	fileCfg, err := categorizer.LoadConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	fileCfg.Table.Path = filepath.Join(dir, "correspondenceTable.csv")
	fileCfg.Schedule.OutputDir = filepath.Join(dir, "output")

	cfg := fileCfg.Clone()
	cfg.Database.DSN = "cmlist:secret@tcp(db:3306)/talents"
	a := &app{cfgPath: filepath.Join(dir, "config.yaml"), cfg: cfg, fileCfg: fileCfg}
	require.NoError(t, (&initCmd{}).Run(a))

	data, err := os.ReadFile(a.cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	info, err := os.Stat(a.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := categorizer.LoadConfig(a.cfgPath)
	require.NoError(t, err)
	assert.Empty(t, loaded.Database.DSN)
	assert.FileExists(t, fileCfg.Table.Path)
	assert.DirExists(t, fileCfg.Schedule.OutputDir)
}

func TestPrintColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talents.tsv")
	require.NoError(t, os.WriteFile(path, []byte("タレント名\tCM出演\t事務所URL\nA\t携帯：あり X\thttps://a.example\n"), 0o644))
	meta, err := categorizer.ReadTalentFileMetadata(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	printColumns(&buf, meta)
	assert.Equal(t, "header: タレント名, CM出演, 事務所URL\n"+
		"id         -\n"+
		"name       タレント名\n"+
		"age        -\n"+
		"gender     -\n"+
		"type       -\n"+
		"ad_note    CM出演\n"+
		"agency_url 事務所URL\n", buf.String())
}
