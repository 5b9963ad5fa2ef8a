package categorizer

import (
	"runtime"

	"gopkg.in/yaml.v3"
)

// TableConfig locates the correspondence table.
type TableConfig struct {
	Path string `yaml:"path"`
}

// TalentsConfig controls how talent files are read.
type TalentsConfig struct {
	Columns       TalentColumns     `yaml:"columns"`
	ExpandEscapes bool              `yaml:"expand_escapes"`
	Candidates    *ColumnCandidates `yaml:"candidates,omitempty"`
}

// TalentColumns pins talent columns by header name or "#N".
type TalentColumns struct {
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Age       string `yaml:"age,omitempty"`
	Gender    string `yaml:"gender,omitempty"`
	Type      string `yaml:"type,omitempty"`
	AdNote    string `yaml:"ad_note,omitempty"`
	AgencyURL string `yaml:"agency_url,omitempty"`
}

// ParseOptions converts the column settings into loader options.
func (c TalentsConfig) ParseOptions() TalentParseOptions {
	return TalentParseOptions{
		IDColumn:        c.Columns.ID,
		NameColumn:      c.Columns.Name,
		AgeColumn:       c.Columns.Age,
		GenderColumn:    c.Columns.Gender,
		TypeColumn:      c.Columns.Type,
		AdNoteColumn:    c.Columns.AdNote,
		AgencyURLColumn: c.Columns.AgencyURL,
		ExpandEscapes:   c.ExpandEscapes,
	}
}

// DatabaseConfig points at the talent database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SearchConfig mirrors the talent search form.
type SearchConfig struct {
	Types         []int  `yaml:"types"`
	Genders       []int  `yaml:"genders"`
	ModifiedSince string `yaml:"modified_since"`
	Limit         int    `yaml:"limit"`
}

// ScheduleConfig drives the periodic report job.
type ScheduleConfig struct {
	Cron       string       `yaml:"cron"`
	OutputDir  string       `yaml:"output_dir"`
	Categories []string     `yaml:"categories"`
	Search     SearchConfig `yaml:"search"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen      string `yaml:"listen"`
	MetricsPath string `yaml:"metrics_path"`
}

// LogConfig configures console and file logging.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Config aggregates runtime settings persisted to config.yaml.
type Config struct {
	Table    TableConfig    `yaml:"table"`
	Talents  TalentsConfig  `yaml:"talents"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	// Workers bounds parallel per-talent classification.
	Workers int `yaml:"workers"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := yaml.Marshal(c)
	var out Config
	_ = yaml.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Table.Path == "" {
		c.Table.Path = "correspondenceTable.csv"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Schedule.OutputDir == "" {
		c.Schedule.OutputDir = "output"
	}
	if c.Schedule.Search.ModifiedSince == "" {
		c.Schedule.Search.ModifiedSince = "2023-01-01"
	}
	if c.Schedule.Search.Limit <= 0 {
		c.Schedule.Search.Limit = 1000
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8090"
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}
