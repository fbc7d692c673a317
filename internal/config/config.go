// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file/env on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration for one assignment run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr exposes Prometheus metrics when non-empty, e.g. ":9090".
	// Empty disables the listener; metrics are still collected in-process.
	MetricsAddr string `koanf:"metrics_addr"`

	// Tolerance is the cross-sheet score spread beyond which aggregation
	// flags a conflict and takes the maximum instead of the mean.
	Tolerance float64 `koanf:"tolerance"`

	// MinScore and MaxScore bound valid interview scores.
	MinScore float64 `koanf:"min_score"`
	MaxScore float64 `koanf:"max_score"`

	// AggregationWorkers bounds concurrent per-candidate score resolution.
	AggregationWorkers int `koanf:"aggregation_workers"`

	// Input tables.
	OrdinaryRoster   string   `koanf:"ordinary_roster"`
	InternalRoster   string   `koanf:"internal_roster"`
	FamilyTable      string   `koanf:"family_table"`
	CoupleTable      string   `koanf:"couple_table"`
	GroupRosters     []string `koanf:"group_rosters"`
	InterviewSheets  []string `koanf:"interview_sheets"`
	PositionTable    string   `koanf:"position_table"`
	DesignationTable string   `koanf:"designation_table"`

	// Outputs.
	ReportPath string `koanf:"report_path"`
	RosterPath string `koanf:"roster_path"`
}

// New creates a Config with defaults. Load layers optional file and env
// settings on top of these.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Tolerance:          10.0,
		MinScore:           0,
		MaxScore:           100,
		AggregationWorkers: 1,
		OrdinaryRoster:     "input/ordinary.csv",
		InternalRoster:     "input/internal.csv",
		FamilyTable:        "input/family.csv",
		CoupleTable:        "input/couples.csv",
		PositionTable:      "input/positions.csv",
		DesignationTable:   "input/designations.csv",
		ReportPath:         "output/report.txt",
		RosterPath:         "output/roster.csv",
	}
}
