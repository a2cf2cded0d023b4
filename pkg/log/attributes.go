// Package log defines standard attribute keys for data preparation runs.
//
// Using these keys across the pipeline, the bench and the CLI keeps log
// lines filterable: every stage reports the same "pipeline.stage" and
// "data.rows_*" fields, so a run can be reconstructed from its logs alone.
//
// Keys follow a hierarchical naming convention ("data.rows_in",
// "config.random_seed").

package log

// Run and stage context.
const (
	// RunIDKey identifies one pipeline run. Set once per Pipeline.Run.
	RunIDKey = "run.id"

	// ComponentKey identifies the package emitting the record.
	// Examples: "preprocessing", "model_selection", "bench", "dataset"
	ComponentKey = "component"

	// StageKey names the pipeline stage.
	// Examples: "year_sentinel", "required_filter", "status_filter"
	StageKey = "pipeline.stage"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// FoldKey is the zero-based fold index during cross-validation.
	FoldKey = "cv.fold"
)

// Data shape.
const (
	// RowsInKey is the number of rows entering a stage.
	RowsInKey = "data.rows_in"

	// RowsOutKey is the number of rows leaving a stage.
	RowsOutKey = "data.rows_out"

	// RowsDroppedKey is RowsIn minus RowsOut.
	RowsDroppedKey = "data.rows_dropped"

	// ValuesReplacedKey counts values rewritten by a stage, e.g. sentinels
	// turned into missing values.
	ValuesReplacedKey = "data.values_replaced"

	// ColumnsKey is the number of columns in a table.
	ColumnsKey = "data.columns"

	// FeaturesKey is the number of encoded feature columns.
	FeaturesKey = "data.features"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// LevelKey names a status level.
	LevelKey = "data.level"

	// SourceKey names the input, a file path or a query.
	SourceKey = "data.source"
)

// Metrics and timing.
const (
	// DurationMsKey records execution time in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records accuracy on a held-out set.
	AccuracyKey = "metrics.accuracy"

	// AUCKey records ROC AUC on a held-out set.
	AUCKey = "metrics.roc_auc"
)

// Configuration.
const (
	// RandomSeedKey records the seed threaded through split and fold.
	RandomSeedKey = "config.random_seed"

	// TrainFractionKey records the train share of the split.
	TrainFractionKey = "config.train_fraction"

	// FoldsKey records k.
	FoldsKey = "config.folds"
)

// Error context.
const (
	// ErrorTypeKey categorizes the error, e.g. "SchemaError".
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard operation values.
const (
	OperationPrepare  = "prepare"
	OperationSplit    = "split"
	OperationFold     = "fold"
	OperationFit      = "fit"
	OperationEncode   = "encode"
	OperationEvaluate = "evaluate"
	OperationLoad     = "load"
)
