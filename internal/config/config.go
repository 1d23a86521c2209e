package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// Config represents the complete run configuration
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment" envconfig:"EXPERIMENT"`
	Output     OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	Statistics StatisticsConfig `yaml:"statistics" envconfig:"STATISTICS"`
	Merge      MergeConfig      `yaml:"merge" envconfig:"MERGE"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ExperimentConfig describes one experiment directory and how to read it
type ExperimentConfig struct {
	Name       string            `yaml:"name" envconfig:"NAME" validate:"required"`
	InputDir   string            `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	Filename   FilenameConfig    `yaml:"filename" envconfig:"FILENAME"`
	Groups     []TokenSpec       `yaml:"groups" ignored:"true" validate:"required,min=1,dive"`
	Batches    []TokenSpec       `yaml:"batches" ignored:"true" validate:"dive"`
	Timepoints []string          `yaml:"timepoints" envconfig:"TIMEPOINTS" validate:"max=2,unique,dive,required"`
	Order      []domain.GroupKey `yaml:"order" ignored:"true" validate:"dive"`
	Inputs     InputsConfig      `yaml:"inputs" envconfig:"INPUTS"`
	Thresholds ThresholdConfig   `yaml:"thresholds" envconfig:"THRESHOLDS"`
	Invasion   InvasionConfig    `yaml:"invasion" envconfig:"INVASION"`

	// ShiftToMinimum subtracts each organoid's minimum distance from its
	// distances before any derived metric is computed.
	ShiftToMinimum bool `yaml:"shift_to_minimum" envconfig:"SHIFT_TO_MINIMUM"`

	// OwnBaseline selects the statistic used by first-timepoint
	// normalization: "min" or "mean".
	OwnBaseline string `yaml:"own_baseline" envconfig:"OWN_BASELINE" validate:"oneof=min mean"`
}

// FilenameConfig is the token grammar of measurement filenames
type FilenameConfig struct {
	Separator       string `yaml:"separator" envconfig:"SEPARATOR" validate:"required"`
	TimepointSuffix string `yaml:"timepoint_suffix" envconfig:"TIMEPOINT_SUFFIX"`
	OrganoidPrefix  string `yaml:"organoid_prefix" envconfig:"ORGANOID_PREFIX" validate:"required"`
}

// TokenSpec maps a filename token (matched exactly or as a prefix) to a
// display name. An empty name means the token is the name.
type TokenSpec struct {
	Token string `yaml:"token" validate:"required"`
	Name  string `yaml:"name"`
}

// DisplayName returns the name used in tables and reports.
func (s TokenSpec) DisplayName() string {
	if s.Name == "" {
		return s.Token
	}
	return s.Name
}

// InputSpec locates one measurement kind
type InputSpec struct {
	Pattern string   `yaml:"pattern"`
	Columns []string `yaml:"columns"`
	Exclude []string `yaml:"exclude"`
}

// Enabled reports whether the measurement kind is configured.
func (s InputSpec) Enabled() bool { return s.Pattern != "" }

// InputsConfig contains the measurement file layout
type InputsConfig struct {
	HeaderSkip int       `yaml:"header_skip" envconfig:"HEADER_SKIP" validate:"min=0"`
	Delimiter  string    `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
	Distance   InputSpec `yaml:"distance" ignored:"true"`
	Intensity  InputSpec `yaml:"intensity" ignored:"true"`
	Position   InputSpec `yaml:"position" ignored:"true"`
	Volume     InputSpec `yaml:"volume" ignored:"true"`
	Area       InputSpec `yaml:"area" ignored:"true"`
	FullVolume InputSpec `yaml:"full_volume" ignored:"true"`
	FullArea   InputSpec `yaml:"full_area" ignored:"true"`
}

// ThresholdConfig holds the optional fixed distance cutoffs
type ThresholdConfig struct {
	Above *float64 `yaml:"above" envconfig:"ABOVE"`
	Below *float64 `yaml:"below" envconfig:"BELOW"`
}

// InvasionConfig derives the above-threshold from a reference group,
// either as the mean per-organoid quantile or as one descriptive
// statistic of the pooled reference distances.
type InvasionConfig struct {
	Quantile       float64 `yaml:"quantile" envconfig:"QUANTILE" validate:"gte=0,lt=1"`
	Statistic      string  `yaml:"statistic" envconfig:"STATISTIC" validate:"omitempty,oneof=min q1 median q3 max range iqr q1q4 q2q4 q3q4 std3 mean stdev"`
	ReferenceGroup string  `yaml:"reference_group" envconfig:"REFERENCE_GROUP"`
}

// Enabled reports whether a reference-group threshold is configured.
func (c InvasionConfig) Enabled() bool {
	return (c.Quantile > 0 || c.Statistic != "") && c.ReferenceGroup != ""
}

// OutputConfig contains export locations and toggles
type OutputConfig struct {
	Dir            string `yaml:"dir" envconfig:"DIR" validate:"required"`
	DataDir        string `yaml:"data_dir" envconfig:"DATA_DIR"`
	StatisticsDir  string `yaml:"statistics_dir" envconfig:"STATISTICS_DIR"`
	Workbooks      bool   `yaml:"workbooks" envconfig:"WORKBOOKS"`
	TidyCSV        bool   `yaml:"tidy_csv" envconfig:"TIDY_CSV"`
	StatisticsText bool   `yaml:"statistics_text" envconfig:"STATISTICS_TEXT"`
}

// StatisticsConfig selects which tests run
type StatisticsConfig struct {
	Anova      bool     `yaml:"anova" envconfig:"ANOVA"`
	Kruskal    bool     `yaml:"kruskal" envconfig:"KRUSKAL"`
	Regression bool     `yaml:"regression" envconfig:"REGRESSION"`
	Alpha      float64  `yaml:"alpha" envconfig:"ALPHA" validate:"gt=0,lt=1"`
	Families   []string `yaml:"families" envconfig:"FAMILIES"`
}

// MergeConfig lists replicate outputs to combine
type MergeConfig struct {
	Replicates     []string     `yaml:"replicates" envconfig:"REPLICATES" validate:"dive,required"`
	ReferenceGroup string       `yaml:"reference_group" envconfig:"REFERENCE_GROUP"`
	CellCount      WorkbookSpec `yaml:"cell_count" ignored:"true"`
	Invaded        WorkbookSpec `yaml:"invaded" ignored:"true"`
	Distance       WorkbookSpec `yaml:"distance" ignored:"true"`
	OutputDir      string       `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	// Workers bounds concurrent replicate loads. The default of one loads
	// replicates sequentially; zero uses GOMAXPROCS.
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// WorkbookSpec names a workbook and sheet inside a replicate directory.
// Leaving both blank disables the table.
type WorkbookSpec struct {
	File  string `yaml:"file" validate:"required_with=Sheet"`
	Sheet string `yaml:"sheet" validate:"required_with=File"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig controls trace and metric export
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load reads the YAML file at path (if non-empty), applies ORGANOID_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("path", path)
		}
	}

	// Environment variables take precedence over the file
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile decodes YAML over the defaults already in cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var details []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			details = append(details, err.Error())
		}
		return apperrors.NewConfigError("config validation failed", fmt.Errorf("%s", strings.Join(details, "; ")))
	}

	e := c.Experiment
	if !e.Inputs.Distance.Enabled() {
		return apperrors.NewConfigError("experiment.inputs.distance.pattern is required", nil)
	}
	if e.Thresholds.Above != nil && e.Thresholds.Below != nil && *e.Thresholds.Below > *e.Thresholds.Above {
		return apperrors.NewConfigError("thresholds.below must not exceed thresholds.above", nil)
	}
	if e.Invasion.Quantile > 0 && e.Invasion.Statistic != "" {
		return apperrors.NewConfigError("invasion.quantile and invasion.statistic are mutually exclusive", nil)
	}
	if (e.Invasion.Quantile > 0 || e.Invasion.Statistic != "") != (e.Invasion.ReferenceGroup != "") {
		return apperrors.NewConfigError("invasion.reference_group must be set together with invasion.quantile or invasion.statistic", nil)
	}
	if e.Invasion.Enabled() && !c.hasGroup(e.Invasion.ReferenceGroup) {
		return apperrors.NewConfigError("invasion.reference_group is not a declared group", nil).
			WithContext("group", e.Invasion.ReferenceGroup)
	}
	seen := make(map[string]bool)
	for _, g := range e.Groups {
		name := g.DisplayName()
		if seen[name] {
			return apperrors.NewConfigError("duplicate group name", nil).WithContext("group", name)
		}
		seen[name] = true
	}
	if len(c.Merge.Replicates) > 0 && c.Merge.ReferenceGroup == "" {
		return apperrors.NewConfigError("merge.reference_group is required when replicates are listed", nil)
	}
	if len(c.Merge.Replicates) > 0 && c.Merge.CellCount.File == "" {
		return apperrors.NewConfigError("merge.cell_count is required when replicates are listed", nil)
	}
	return nil
}

func (c *Config) hasGroup(name string) bool {
	for _, g := range c.Experiment.Groups {
		if g.DisplayName() == name {
			return true
		}
	}
	return false
}

// GroupNames returns the declared group display names in order.
func (c *Config) GroupNames() []string {
	out := make([]string, len(c.Experiment.Groups))
	for i, g := range c.Experiment.Groups {
		out[i] = g.DisplayName()
	}
	return out
}

// BatchNames returns the declared batch display names in order.
func (c *Config) BatchNames() []string {
	out := make([]string, len(c.Experiment.Batches))
	for i, b := range c.Experiment.Batches {
		out[i] = b.DisplayName()
	}
	return out
}

// Ordering builds the run's GroupOrdering. An explicit order wins;
// otherwise it is derived as batch x group x timepoint.
func (c *Config) Ordering() *domain.GroupOrdering {
	if len(c.Experiment.Order) > 0 {
		return domain.NewGroupOrdering(c.Experiment.Order, c.Experiment.Timepoints)
	}
	return domain.DeriveGroupOrdering(c.BatchNames(), c.GroupNames(), c.Experiment.Timepoints)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Name:     "experiment",
			InputDir: "Data_Raw",
			Filename: FilenameConfig{
				Separator:       DefaultSeparator,
				TimepointSuffix: DefaultTimepointSuffix,
				OrganoidPrefix:  DefaultOrganoidPrefix,
			},
			Inputs: InputsConfig{
				HeaderSkip: DefaultHeaderSkip,
				Delimiter:  ",",
				Distance: InputSpec{
					Pattern: "*/*_org*_Shortest_Distance_to_Surfaces_Surfaces*.csv",
					Columns: []string{ColumnDistance},
					Exclude: []string{AuxiliaryVolumeMarker},
				},
			},
			OwnBaseline: "mean",
		},
		Output: OutputConfig{
			Dir:            "Data_Processed",
			DataDir:        "data",
			StatisticsDir:  "statistics",
			Workbooks:      true,
			TidyCSV:        false,
			StatisticsText: true,
		},
		Statistics: StatisticsConfig{
			Anova:      true,
			Kruskal:    false,
			Regression: false,
			Alpha:      DefaultAlpha,
			Families:   []string{FamilyCellCount, FamilyAbove},
		},
		Merge: MergeConfig{
			CellCount: WorkbookSpec{File: "cn.xlsx", Sheet: "cn_tidy"},
			Invaded:   WorkbookSpec{File: "above.xlsx", Sheet: "above_tidy"},
			Distance:  WorkbookSpec{File: "dts.xlsx", Sheet: "dts_tidy"},
			Workers:   1,
			OutputDir: "Data_Integrated",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/organoid.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
		},
	}
}
