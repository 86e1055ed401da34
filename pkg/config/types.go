package config

// Config is the complete run configuration for one daylight evaluation.
type Config struct {
	ResultsLocation string     `yaml:"results_location" json:"results_location"`
	Output          string     `yaml:"output" json:"output"`
	AnnualHours     int        `yaml:"annual_hours" json:"annual_hours"`
	Thresholds      Thresholds `yaml:"thresholds" json:"thresholds"`
	Policy          Policy     `yaml:"policy" json:"policy"`
	Occupancy       Occupancy  `yaml:"occupancy" json:"occupancy"`
	Rooms           []string   `yaml:"rooms" json:"rooms,omitempty"`
	RoomsFile       string     `yaml:"rooms_file" json:"rooms_file,omitempty"`
	Workers         int        `yaml:"workers" json:"workers"`
	MetricsFile     string     `yaml:"metrics_file" json:"metrics_file,omitempty"`
	ArchiveDSN      string     `yaml:"archive_dsn" json:"-"`
}

// Thresholds are the BREEAM and UDI limits a run is evaluated against.
type Thresholds struct {
	MinLux      float64 `yaml:"min_lux" json:"min_lux"`
	MinHoursReq int     `yaml:"min_hours_req" json:"min_hours_req"`
	AvgLux      float64 `yaml:"avg_lux" json:"avg_lux"`
	AvgHoursReq int     `yaml:"avg_hours_req" json:"avg_hours_req"`
	UDIMinLux   float64 `yaml:"udi_min_lux" json:"udi_min_lux"`
}

// Policy holds the tunable rules that turn measurements into verdicts.
type Policy struct {
	// AreaPassPct is the share of floor area (0-100) whose points must meet
	// the minimum criterion for the room to pass it.
	AreaPassPct float64        `yaml:"area_pass_pct" json:"area_pass_pct"`
	Normalize   NormalizeRules `yaml:"normalize" json:"normalize"`
}

// NormalizeRules selects the steps applied to grid IDs and room labels
// before they are compared.
type NormalizeRules struct {
	CaseFold        bool `yaml:"case_fold" json:"case_fold"`
	CollapseSpace   bool `yaml:"collapse_space" json:"collapse_space"`
	StripSeparators bool `yaml:"strip_separators" json:"strip_separators"`
}

// Occupancy defines which annual hours count as occupied. At most one of
// MaskFile and Schedule may be set; with neither, every hour is occupied.
type Occupancy struct {
	MaskFile string    `yaml:"mask_file" json:"mask_file,omitempty"`
	Schedule *Schedule `yaml:"schedule" json:"schedule,omitempty"`
}

// Schedule is a daily occupied window, optionally restricted to weekdays.
type Schedule struct {
	StartHour    int    `yaml:"start_hour" json:"start_hour"`
	EndHour      int    `yaml:"end_hour" json:"end_hour"`
	WeekdaysOnly bool   `yaml:"weekdays_only" json:"weekdays_only"`
	FirstWeekday string `yaml:"first_weekday" json:"first_weekday,omitempty"`
}
