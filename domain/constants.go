package domain

const (
	// Registry Key Patterns
	KeyIngestStatus = "status:%s"
	KeyCleanStatus  = "clean_status:%s"

	// Stage cycle summaries
	KeySyncStatus     = "sync_status"
	KeyCleaningStatus = "cleaning_status"

	// Artifact name prefixes
	PrefixRaw     = "raw_"
	PrefixCleaned = "cleaned_"
	PrefixSummary = "summary_"

	ExtCSV  = ".csv"
	ExtJSON = ".json"

	// Metadata columns added at ingest and carried through cleaning untouched
	ColIngestedAt = "ingested_at"
	ColDataSource = "data_source"
	ColSourceFile = "source_file"

	// Suffix of the boolean column flagging IQR outliers of a numeric column
	OutlierSuffix = "_outlier"

	// Per-row share of non-null data values added by the clean stage
	ColCompleteness = "completeness_score"

	// Sentinel used to impute categorical columns without any observed value
	UnknownSentinel = "unknown"
)

// MetadataColumns are excluded from deduplication, imputation and scoring.
var MetadataColumns = map[string]bool{
	ColIngestedAt: true,
	ColDataSource: true,
	ColSourceFile: true,
}
