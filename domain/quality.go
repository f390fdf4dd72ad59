package domain

import "time"

// Quality thresholds, in percent.
const (
	ThresholdCompleteness = 80.0
	ThresholdUniqueness   = 95.0
	ThresholdConsistency  = 90.0
	ThresholdValidity     = 85.0
)

type Score struct {
	Score        float64 `json:"score"`
	Threshold    float64 `json:"threshold"`
	ThresholdMet bool    `json:"threshold_met"`
}

type ColumnProfile struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	ExpectedKind string   `json:"expected_kind,omitempty"`
	Consistent   bool     `json:"consistent"`
	NonNull      int      `json:"non_null_count"`
	Null         int      `json:"null_count"`
	Unique       int      `json:"unique_count"`
	Validity     float64  `json:"validity_percentage"`
	Min          *float64 `json:"min_value,omitempty"`
	Max          *float64 `json:"max_value,omitempty"`
	Mean         *float64 `json:"mean_value,omitempty"`
	StdDev       *float64 `json:"std_deviation,omitempty"`
	AvgLength    *float64 `json:"avg_length,omitempty"`
	MinLength    *int     `json:"min_length,omitempty"`
	MaxLength    *int     `json:"max_length,omitempty"`
	Earliest     string   `json:"earliest,omitempty"`
	Latest       string   `json:"latest,omitempty"`
}

type QualityReport struct {
	TotalRows       int             `json:"total_rows"`
	TotalColumns    int             `json:"total_columns"`
	Completeness    Score           `json:"completeness"`
	Uniqueness      Score           `json:"uniqueness"`
	Consistency     Score           `json:"consistency"`
	Validity        Score           `json:"validity"`
	OverallScore    float64         `json:"overall_score"`
	Recommendations []string        `json:"recommendations"`
	ColumnProfiles  []ColumnProfile `json:"column_profiles"`
}

type RenamedColumn struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ImputedColumn struct {
	Column   string `json:"column"`
	Strategy string `json:"strategy"`
	Value    string `json:"value"`
	Cells    int    `json:"cells"`
}

type CoercedColumn struct {
	Column string `json:"column"`
	From   string `json:"from"`
	To     string `json:"to"`
	// Invalid counts values that did not parse and became null.
	Invalid int `json:"invalid"`
}

type OutlierReport struct {
	Column     string  `json:"column"`
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	Lower      float64 `json:"lower_bound"`
	Upper      float64 `json:"upper_bound"`
	Flagged    int     `json:"flagged"`
	FlagColumn string  `json:"flag_column,omitempty"`
}

// QualitySummary is written next to every cleaned artifact. It is derived
// only from the raw artifact content and its modification time, so cleaning
// the same raw artifact twice yields the same document.
type QualitySummary struct {
	Source            string            `json:"source"`
	Cleaned           string            `json:"cleaned"`
	SourceModified    time.Time         `json:"source_modified"`
	OriginalRows      int               `json:"original_rows"`
	CleanedRows       int               `json:"cleaned_rows"`
	RowsRemoved       int               `json:"rows_removed"`
	RemovalPercentage float64           `json:"removal_percentage"`
	OriginalColumns   int               `json:"original_columns"`
	CleanedColumns    int               `json:"cleaned_columns"`
	DuplicatesRemoved int               `json:"duplicates_removed"`
	DroppedColumns    []string          `json:"dropped_columns"`
	RenamedColumns    []RenamedColumn   `json:"renamed_columns"`
	ImputedColumns    []ImputedColumn   `json:"imputed_columns"`
	CoercedColumns    []CoercedColumn   `json:"coerced_columns"`
	Outliers          []OutlierReport   `json:"outliers"`
	DataTypes         map[string]string `json:"data_types"`
	Quality           QualityReport     `json:"quality"`
}
