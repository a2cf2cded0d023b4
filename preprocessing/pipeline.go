package preprocessing

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/model_selection"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
	"github.com/YuminosukeSato/pumpprep/pkg/log"
)

// Pipeline はサンプリングされた生テーブルをクリーンなテーブルと
// 層化された train/test/fold 分割に変換する
//
// ステージの実行順:
//
//	validate schema -> year sentinel -> required filter -> status filter ->
//	projection -> numeric sentinel -> population filter -> categorical ->
//	level check -> split -> folds
//
// 年のセンチネルは必須フィールドフィルタより前に処理する必要がある。
// 建設年が 0 の行は「欠損」として必須フィールドフィルタで落とされる。
//
// Pipeline は純粋な関数として動作する。入力テーブルは変更されず、
// 副作用はログ出力のみ。
type Pipeline struct {
	cfg    Config
	logger log.Logger
	now    func() time.Time
}

// PipelineOption は Pipeline の設定を変更する
type PipelineOption func(*Pipeline)

// WithLogger はステージごとのログ出力先を設定する
func WithLogger(logger log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Result は1回の実行結果
type Result struct {
	Clean       *table.Table
	Partition   *model_selection.Partition
	Diagnostics Diagnostics
}

// Diagnostics は実行の診断情報。CLI はこれを JSON として出力する
type Diagnostics struct {
	RunID       string                  `json:"run_id"`
	Seed        int64                   `json:"seed"`
	Stages      []model.StageReport     `json:"stages"`
	LevelCounts map[string]int          `json:"level_counts"`
	Partition   model_selection.Summary `json:"partition"`
	DurationMs  int64                   `json:"duration_ms"`
}

// NewPipeline は設定を検証して Pipeline を作成する
//
// 使用例:
//
//	p, err := preprocessing.NewPipeline(preprocessing.DefaultConfig(),
//	    preprocessing.WithLogger(provider.GetLoggerWithName("preprocessing")))
//	result, err := p.Run(raw)
func NewPipeline(cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, logger: log.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config は設定のコピーを返す
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Validate は設定が名前で参照する全ての列が schema に存在することを確認する
// どのステージも実行される前に呼ばれる
func (p *Pipeline) Validate(t *table.Table) error {
	for _, col := range p.cfg.NamedColumns() {
		if !t.Has(col) {
			return errors.NewSchemaError("validate", col)
		}
	}
	return nil
}

// Stages はクリーニングのステージを実行順に返す
func (p *Pipeline) Stages() []model.Stage {
	return []model.Stage{
		NewSentinelNormalizer("year_sentinel", p.cfg.yearSentinelTargets(), p.cfg.Sentinel),
		&RequiredFieldFilter{Columns: p.cfg.RequiredColumns},
		&StatusFilter{Column: p.cfg.StatusColumn, Levels: p.cfg.StatusLevels},
		&ColumnProjection{Columns: p.cfg.DropColumns},
		NewSentinelNormalizer("numeric_sentinel", p.cfg.numericSentinelTargets(), p.cfg.Sentinel),
		&PopulationFilter{Column: p.cfg.PopulationColumn, Min: p.cfg.MinPopulation},
		&CategoricalNormalizer{},
	}
}

// Clean はスキーマ検証からカテゴリ正規化までを実行する
// 分割は行わない
func (p *Pipeline) Clean(raw *table.Table) (*table.Table, []model.StageReport, error) {
	if err := p.Validate(raw); err != nil {
		p.logger.Error("schema validation failed", log.StageKey, "validate", "error", err)
		return nil, nil, err
	}

	t := p.applyKinds(raw)
	reports := make([]model.StageReport, 0, 8)
	for _, stage := range p.Stages() {
		out, report, err := stage.Apply(t)
		if err != nil {
			p.logger.Error("stage failed", log.StageKey, stage.Name(), "error", err)
			return nil, reports, err
		}
		p.logger.Info("stage finished",
			log.StageKey, report.Stage,
			log.RowsInKey, report.RowsIn,
			log.RowsOutKey, report.RowsOut,
			log.RowsDroppedKey, report.Dropped,
			log.ValuesReplacedKey, report.ValuesReplaced,
		)
		reports = append(reports, report)
		t = out
	}
	return t, reports, nil
}

// Run はパイプライン全体を実行する
func (p *Pipeline) Run(raw *table.Table) (*Result, error) {
	start := p.now()
	runID := uuid.NewString()
	logger := p.logger.With(log.RunIDKey, runID)
	logger.Info("pipeline started",
		log.OperationKey, log.OperationPrepare,
		log.RowsInKey, raw.Len(),
		log.ColumnsKey, len(raw.Columns()),
		log.RandomSeedKey, p.cfg.Seed,
	)

	scoped := &Pipeline{cfg: p.cfg, logger: logger, now: p.now}
	clean, reports, err := scoped.Clean(raw)
	if err != nil {
		return nil, err
	}

	counts, err := scoped.checkLevels(clean)
	if err != nil {
		return nil, err
	}

	partition, err := model_selection.NewPartition(clean, p.cfg.splitOptions(), p.cfg.foldOptions())
	if err != nil {
		logger.Error("partition failed", log.OperationKey, log.OperationSplit, "error", err)
		return nil, err
	}
	summary := partition.Summary()

	elapsed := p.now().Sub(start).Milliseconds()
	logger.Info("pipeline finished",
		log.RowsOutKey, clean.Len(),
		log.TrainFractionKey, p.cfg.TrainFraction,
		log.FoldsKey, p.cfg.Folds,
		log.DurationMsKey, elapsed,
	)

	return &Result{
		Clean:     clean,
		Partition: partition,
		Diagnostics: Diagnostics{
			RunID:       runID,
			Seed:        p.cfg.Seed,
			Stages:      reports,
			LevelCounts: counts,
			Partition:   summary,
			DurationMs:  elapsed,
		},
	}, nil
}

// checkLevels は各ステータス水準が分割と fold に十分な行数を持つことを確認する
// 水準が完全に消えた場合も Have=0 の DataInsufficientError になる
func (p *Pipeline) checkLevels(clean *table.Table) (map[string]int, error) {
	counts := clean.Counts(p.cfg.StatusColumn, false)
	need := model_selection.MinStratumRows(p.cfg.TrainFraction, p.cfg.Folds)

	levels := make([]string, len(p.cfg.StatusLevels))
	copy(levels, p.cfg.StatusLevels)
	sort.Strings(levels)
	for _, level := range levels {
		have := counts[level]
		if have < need {
			p.logger.Error("status level too small",
				log.StageKey, "level_check",
				log.LevelKey, level,
				log.RowsOutKey, have,
			)
			return nil, errors.NewDataInsufficientError("level_check", level, have, need)
		}
	}
	out := make(map[string]int, len(levels))
	for _, level := range levels {
		out[level] = counts[level]
	}
	return out, nil
}

// applyKinds は設定に従って列の種類を付ける
// ローダーがどんな種類を付けていても、ここで設定の値が優先される
func (p *Pipeline) applyKinds(t *table.Table) *table.Table {
	numeric := toSet(p.cfg.NumericColumns)
	for _, col := range t.Columns() {
		switch {
		case col == p.cfg.IDColumn:
			t = t.WithKind(col, table.KindIdentifier)
		case numeric[col]:
			t = t.WithKind(col, table.KindNumeric)
		case t.Kind(col) != table.KindCategorical:
			t = t.WithKind(col, table.KindCategorical)
		}
	}
	return t
}
