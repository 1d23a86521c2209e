package config

// Application constants
const (
	// Application Info
	AppName = "organoid-pipeline"

	// EnvPrefix namespaces environment overrides, e.g. ORGANOID_LOGGING_LEVEL
	EnvPrefix = "ORGANOID"

	// Filename grammar defaults
	DefaultSeparator       = "_"
	DefaultTimepointSuffix = "days"
	DefaultOrganoidPrefix  = "org"

	// Measurement exports carry two preamble lines before the header
	DefaultHeaderSkip = 2

	// Files whose path contains this marker are surface-model statistics,
	// not per-cell measurements
	AuxiliaryVolumeMarker = "vol"

	// Post-hoc significance level
	DefaultAlpha = 0.05

	// Measurement column names
	ColumnDistance  = "Shortest Distance to Surfaces"
	ColumnIntensity = "Intensity Sum"
	ColumnPositionX = "Position X"
	ColumnPositionY = "Position Y"
	ColumnPositionZ = "Position Z"
	ColumnVolume    = "Volume"
	ColumnArea      = "Area"
)

// Metric families. Each family is exported as <family>.xlsx.
const (
	FamilyDistance      = "dts"
	FamilyFiltered      = "dts_filtered"
	FamilyCellCount     = "cn"
	FamilyAbove         = "above"
	FamilyBelow         = "below"
	FamilyFraction      = "frac"
	FamilyVolume        = "vol"
	FamilyArea          = "sa"
	FamilyIntensity     = "inten"
	FamilyPosition      = "xyz"
	FamilyStats         = "stats"
	FamilyBeyondStat    = "beyond"
	SuffixNormTotal     = "_norm_total"
	SuffixNormBelow     = "_norm_below"
	SuffixNormOwn       = "_norm_own"
	FamilyMergedCount   = "cn_raw"
	FamilyMergedCountN  = "cn_norm"
	FamilyMergedInvaded = "inv_raw"
	FamilyMergedInvN    = "inv_norm"
)
