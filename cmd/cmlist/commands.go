package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/Handydigital-dev/cmlist/internal/logger"
	"github.com/Handydigital-dev/cmlist/internal/scheduler"
	"github.com/Handydigital-dev/cmlist/internal/server"
	"github.com/Handydigital-dev/cmlist/internal/talentdb"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
)

type categorizeCmd struct {
	Table string `short:"t" help:"Correspondence table (CSV/TSV); defaults to the config value"`
	Note  string `short:"n" help:"Ad note text" xor:"source"`
	File  string `short:"f" type:"existingfile" help:"Read the ad note from a file" xor:"source"`
	JSON  bool   `help:"Print the result as JSON"`
}

func (c *categorizeCmd) Run(a *app) error {
	note := c.Note
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return err
		}
		note = string(data)
	}
	if a.cfg.Talents.ExpandEscapes {
		note = categorizer.ExpandEscapedNewlines(note)
	}
	svc, err := a.service(c.Table)
	if err != nil {
		return err
	}
	res := svc.Categorize(note)
	for _, label := range res.Unmapped {
		logger.Warnf("label %q not in correspondence table, routed to %s", label, categorizer.OtherCategory)
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res.Result.Map())
	}
	if res.Result.Len() == 0 {
		fmt.Println("no advertisement relationships found")
		return nil
	}
	for _, category := range res.Result.Categories() {
		fmt.Println(category)
		for _, m := range res.Result.Mentions(category) {
			fmt.Println("  " + m)
		}
	}
	return nil
}

type reportCmd struct {
	Table    string   `short:"t" help:"Correspondence table (CSV/TSV); defaults to the config value"`
	Input    string   `short:"i" required:"" type:"existingfile" help:"Talent CSV/TSV file"`
	Output   string   `short:"o" default:"search_output.xlsx" help:"Report file (.xlsx or .csv)"`
	Category []string `short:"c" sep:"none" help:"Category column to include; repeat for several. Default: all"`
	Inspect  bool     `help:"Print the columns detected in the input file and exit"`
}

func (c *reportCmd) Run(a *app) error {
	if c.Inspect {
		meta, err := categorizer.ReadTalentFileMetadata(c.Input)
		if err != nil {
			return err
		}
		printColumns(os.Stdout, meta)
		return nil
	}
	svc, err := a.service(c.Table)
	if err != nil {
		return err
	}
	talents, err := categorizer.LoadTalents(c.Input, a.cfg.Talents.ParseOptions())
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return writeReport(ctx, svc, talents, c.Category, c.Output)
}

func printColumns(w io.Writer, meta categorizer.TalentFileMetadata) {
	fmt.Fprintf(w, "header: %s\n", strings.Join(meta.Columns, ", "))
	s := meta.Suggested
	for _, f := range []struct{ field, title string }{
		{"id", s.IDColumn},
		{"name", s.NameColumn},
		{"age", s.AgeColumn},
		{"gender", s.GenderColumn},
		{"type", s.TypeColumn},
		{"ad_note", s.AdNoteColumn},
		{"agency_url", s.AgencyURLColumn},
	} {
		title := f.title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%-11s%s\n", f.field, title)
	}
}

type queryCmd struct {
	Table    string   `short:"t" help:"Correspondence table (CSV/TSV); defaults to the config value"`
	Type     []int    `help:"Talent type: 0 individual, 1 group"`
	Gender   []int    `help:"Gender: 1 male, 2 female, 3 other/mixed"`
	Since    string   `help:"Only talents modified on or after this date (YYYY-MM-DD)"`
	Limit    int      `help:"Maximum number of talents (1-10000)"`
	Name     []string `sep:"none" help:"Look up talents by exact name; repeat for several"`
	Category []string `short:"c" sep:"none" help:"Category column to include; repeat for several. Default: all"`
	Output   string   `short:"o" default:"search_output.xlsx" help:"Report file (.xlsx or .csv)"`
}

func (c *queryCmd) filter(defaults categorizer.SearchConfig) (talentdb.Filter, error) {
	if len(c.Name) > 0 {
		names := talentdb.CleanNames(c.Name)
		if len(names) == 0 {
			return talentdb.Filter{}, fmt.Errorf("--name must not be blank")
		}
		return talentdb.NameFilter(names), nil
	}
	search := defaults
	if len(c.Type) > 0 {
		search.Types = c.Type
	}
	if len(c.Gender) > 0 {
		search.Genders = c.Gender
	}
	if c.Since != "" {
		search.ModifiedSince = c.Since
	}
	if c.Limit != 0 {
		if c.Limit < 1 || c.Limit > talentdb.MaxLimit {
			return talentdb.Filter{}, fmt.Errorf("limit must be between 1 and %d", talentdb.MaxLimit)
		}
		search.Limit = c.Limit
	}
	for _, t := range search.Types {
		if t != int(talentdb.Individual) && t != int(talentdb.Group) {
			return talentdb.Filter{}, fmt.Errorf("unknown type %d", t)
		}
	}
	for _, g := range search.Genders {
		if g < int(talentdb.Male) || g > int(talentdb.Mixed) {
			return talentdb.Filter{}, fmt.Errorf("unknown gender %d", g)
		}
	}
	return talentdb.FilterFromConfig(search)
}

func (c *queryCmd) Run(a *app) error {
	filter, err := c.filter(a.cfg.Schedule.Search)
	if err != nil {
		return err
	}
	svc, err := a.service(c.Table)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	repo, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	talents, err := repo.Search(ctx, filter)
	if err != nil {
		return err
	}
	logger.Infof("Found %d talents", len(talents))
	if len(talents) == 0 {
		logger.Warnf("no talents matched the search; nothing written")
		return nil
	}
	return writeReport(ctx, svc, talents, c.Category, c.Output)
}

func writeReport(ctx context.Context, svc *categorizer.Service, talents []categorizer.Talent, categories []string, output string) error {
	for _, name := range categories {
		if !categorizer.IsCanonical(name) {
			logger.Warnf("unknown category %q ignored", name)
		}
	}
	report, err := svc.BuildReport(ctx, talents, categories)
	if err != nil {
		return err
	}
	if err := categorizer.SaveReport(output, report); err != nil {
		return err
	}
	logger.Infof("Wrote %d rows to %s", len(report.Rows), output)
	return nil
}

type scheduleCmd struct {
	Once bool `help:"Run the job once and exit"`
}

func (c *scheduleCmd) Run(a *app) error {
	svc, err := a.service("")
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	repo, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	sched := scheduler.NewScheduler(svc, repo, a.metrics)
	if c.Once {
		path, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Infof("Report written to %s", path)
		return nil
	}
	if err := sched.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}

type serveCmd struct {
	Listen       string `help:"Listen address; defaults to the config value"`
	WithSchedule bool   `help:"Also run the scheduled report job"`
}

func (c *serveCmd) Run(a *app) error {
	if c.Listen != "" {
		a.cfg.Server.Listen = c.Listen
	}
	svc, err := a.service("")
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	a.registry.MustRegister(
		versioncollector.NewCollector(server.AppName),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var searcher server.Searcher
	if a.cfg.Database.DSN != "" {
		repo, err := a.openDB(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()
		searcher = repo

		if c.WithSchedule {
			sched := scheduler.NewScheduler(svc, repo, a.metrics)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()
		}
	} else {
		logger.Warnf("database DSN not set; /api/search is disabled")
	}

	return server.New(svc, searcher, a.registry, a.log).Run(ctx, a.cfg.Server.Listen)
}

type initCmd struct {
	Force bool `help:"Overwrite an existing config file"`
}

func (c *initCmd) Run(a *app) error {
	if _, err := os.Stat(a.cfgPath); err == nil && !c.Force {
		logger.Infof("%s already exists", a.cfgPath)
	} else {
		// Flag and env overrides, the DSN above all, stay out of the file.
		if err := categorizer.SaveConfig(a.cfgPath, a.fileCfg); err != nil {
			return err
		}
		logger.Infof("Wrote %s", a.cfgPath)
	}
	created, err := categorizer.WriteCorrespondenceTemplate(a.cfg.Table.Path)
	if err != nil {
		return err
	}
	if created {
		logger.Infof("Wrote %s", a.cfg.Table.Path)
	} else {
		logger.Infof("%s already exists", a.cfg.Table.Path)
	}
	if dir := strings.TrimSpace(a.cfg.Schedule.OutputDir); dir != "" {
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}
