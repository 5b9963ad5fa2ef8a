package categorizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	talents  int
	unmapped int
	reports  []int
	tables   []int
}

func (o *recordingObserver) ObserveTalent(c Categorization) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.talents++
	o.unmapped += len(c.Unmapped)
}

func (o *recordingObserver) ObserveReport(talents int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, talents)
}

func (o *recordingObserver) ObserveTable(t *CorrespondenceTable) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tables = append(o.tables, t.Len())
}

func TestNewServiceRequiresTable(t *testing.T) {
	_, err := NewService(Config{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestServiceBuildReportMatchesBuildRows(t *testing.T) {
	talents := make([]Talent, 0, 200)
	for i := 0; i < 200; i++ {
		note := fmt.Sprintf("飲料：あり ブランド%d『茶』\n謎%d：あり 何か%d", i, i%3, i)
		talents = append(talents, Talent{Name: fmt.Sprintf("talent-%03d", i), AdNote: note})
	}
	obs := &recordingObserver{}
	svc, err := NewService(Config{Workers: 8}, testTable(), nil, obs)
	require.NoError(t, err)

	got, err := svc.BuildReport(context.Background(), talents, []string{OtherCategory, "飲料・アルコール"})
	require.NoError(t, err)
	want := BuildRows(talents, testTable(), []string{OtherCategory, "飲料・アルコール"})
	assert.Equal(t, want, got)
	assert.Equal(t, "talent-137", got.Rows[137].Name)

	assert.Equal(t, 200, obs.talents)
	assert.Equal(t, 200, obs.unmapped)
	assert.Equal(t, []int{200}, obs.reports)
	assert.Equal(t, []int{3}, obs.tables)
}

func TestServiceBuildReportCancelled(t *testing.T) {
	svc, err := NewService(Config{Workers: 2}, testTable(), nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.BuildReport(ctx, []Talent{{Name: "A", AdNote: "携帯：あり X"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceBuildReportEmpty(t *testing.T) {
	svc, err := NewService(Config{}, testTable(), nil, nil)
	require.NoError(t, err)
	report, err := svc.BuildReport(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Len(t, report.Categories, len(CanonicalCategories()))
}

func TestServiceCategorize(t *testing.T) {
	obs := &recordingObserver{}
	svc, err := NewService(Config{}, testTable(), nil, obs)
	require.NoError(t, err)
	c := svc.Categorize("携帯：あり X\n謎：あり Y")
	assert.Equal(t, []string{"X"}, c.Result.Mentions("通信"))
	assert.Equal(t, []string{"謎"}, c.Unmapped)
	assert.Equal(t, 1, obs.talents)
}

func TestServiceReloadTable(t *testing.T) {
	obs := &recordingObserver{}
	svc, err := NewService(Config{}, testTable(), nil, obs)
	require.NoError(t, err)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("in,out\n謎,教育\n"), 0o644))
	require.NoError(t, svc.ReloadTable(good))
	assert.Equal(t, "教育", svc.Table().Resolve("謎"))

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("in,out\n"), 0o644))
	err = svc.ReloadTable(bad)
	assert.ErrorIs(t, err, ErrEmptyTable)
	assert.Equal(t, "教育", svc.Table().Resolve("謎"))
	assert.Equal(t, []int{3, 1}, obs.tables)
}

func TestServiceConfigIsCopied(t *testing.T) {
	svc, err := NewService(Config{Schedule: ScheduleConfig{Categories: []string{"教育"}}}, testTable(), nil, nil)
	require.NoError(t, err)
	cfg := svc.Config()
	cfg.Schedule.Categories[0] = "通信"
	assert.Equal(t, "教育", svc.Config().Schedule.Categories[0])

	cfg.Workers = 5
	svc.UpdateConfig(cfg)
	assert.Equal(t, 5, svc.Config().Workers)
}
