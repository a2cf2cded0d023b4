// Package bench は準備済みのデータで分類器を比較するためのハーネスです。
//
// Partition の各 fold で、訓練部分にエンコーダと分類器を Fit し、
// 評価部分の精度と ROC AUC を計算します。fold は core/parallel で並列に処理されます。
// エンコーダは fold の訓練行だけで学習するため、評価行の情報は漏れません。
package bench

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/core/parallel"
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/metrics"
	"github.com/YuminosukeSato/pumpprep/model_selection"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
	"github.com/YuminosukeSato/pumpprep/pkg/log"
	"github.com/YuminosukeSato/pumpprep/preprocessing"
)

// Options はベンチの設定
type Options struct {
	// StatusColumn はラベルの列、PositiveLevel は陽性クラス (y=1) の水準
	StatusColumn  string
	PositiveLevel string

	// Threshold は確率をラベルに変換する閾値
	Threshold float64

	// MaxWorkers は同時に処理する fold 数。0 以下は runtime.NumCPU()
	MaxWorkers int

	// Encoder は fold ごとに新しいエンコーダを作る。nil なら OneHotEncoder
	Encoder model.EncoderFactory

	Logger log.Logger
}

// DefaultOptions は「非稼働」を陽性クラスとする設定を返す
func DefaultOptions(cfg preprocessing.Config) Options {
	encOpts := preprocessing.DefaultEncoderOptions(cfg)
	return Options{
		StatusColumn:  cfg.StatusColumn,
		PositiveLevel: cfg.StatusLevels[1],
		Threshold:     0.5,
		Encoder: func() model.TableEncoder {
			return preprocessing.NewOneHotEncoder(encOpts)
		},
		Logger: log.Nop(),
	}
}

func (o Options) validate() error {
	if o.StatusColumn == "" {
		return errors.NewValidationError("status_column", "must be set", o.StatusColumn)
	}
	if o.PositiveLevel == "" {
		return errors.NewValidationError("positive_level", "must be set", o.PositiveLevel)
	}
	if !(o.Threshold > 0 && o.Threshold < 1) {
		return errors.NewValidationError("threshold", "must be in (0, 1)", o.Threshold)
	}
	if o.Encoder == nil {
		return errors.NewValidationError("encoder", "factory must be set", nil)
	}
	return nil
}

func (o Options) logger() log.Logger {
	if o.Logger == nil {
		return log.Nop()
	}
	return o.Logger
}

// Score は1回の fit/score の結果
type Score struct {
	Fold      int     `json:"fold"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	Features  int     `json:"features"`
	Accuracy  float64 `json:"accuracy"`
	AUC       float64 `json:"roc_auc"`
	LogLoss   float64 `json:"log_loss"`
	FitMs     int64   `json:"fit_ms"`
}

// CVResult は交差検証の結果
type CVResult struct {
	Folds        []Score `json:"folds"`
	MeanAccuracy float64 `json:"mean_accuracy"`
	StdAccuracy  float64 `json:"std_accuracy"`
	MeanAUC      float64 `json:"mean_roc_auc"`
	StdAUC       float64 `json:"std_roc_auc"`
}

// Labels は status 列を 0/1 のベクトルに変換する。positive が 1
func Labels(t *table.Table, column, positive string) (*mat.VecDense, error) {
	values, err := t.Values(column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.NewModelError("bench.labels", "empty data", errors.ErrEmptyData)
	}
	y := mat.NewVecDense(len(values), nil)
	for i, v := range values {
		if v.Missing {
			return nil, errors.NewFieldValidationError("bench.labels", column, "status is missing", i)
		}
		if v.Raw == positive {
			y.SetVec(i, 1)
		}
	}
	return y, nil
}

// CrossValidate は Partition の各 fold で分類器を評価する
//
// 使用例:
//
//	cv, err := bench.CrossValidate(result.Clean, result.Partition,
//	    func() model.Classifier { return bench.NewMajorityClassifier() },
//	    bench.DefaultOptions(cfg))
func CrossValidate(clean *table.Table, part *model_selection.Partition, newClassifier model.ClassifierFactory, opts Options) (*CVResult, error) {
	if err := checkInputs(clean, part, newClassifier, opts); err != nil {
		return nil, err
	}
	logger := opts.logger().With(log.OperationKey, log.OperationEvaluate)

	k := part.K()
	scores := make([]Score, k)
	err := parallel.ForEach(k, opts.MaxWorkers, func(i int) error {
		train, err := part.FoldTrain(i)
		if err != nil {
			return err
		}
		test, err := part.FoldTest(i)
		if err != nil {
			return err
		}
		s, err := fitAndScore(fmt.Sprintf("bench.fold[%d]", i), clean, train, test, newClassifier, opts)
		if err != nil {
			logger.Error("fold failed", log.FoldKey, i, "error", err)
			return err
		}
		s.Fold = i
		scores[i] = s
		logger.Info("fold scored",
			log.FoldKey, i,
			log.RowsInKey, s.TrainRows,
			log.FeaturesKey, s.Features,
			log.AccuracyKey, s.Accuracy,
			log.AUCKey, s.AUC,
			log.DurationMsKey, s.FitMs,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	acc := make([]float64, k)
	auc := make([]float64, k)
	for i, s := range scores {
		acc[i] = s.Accuracy
		auc[i] = s.AUC
	}
	result := &CVResult{Folds: scores}
	result.MeanAccuracy, result.StdAccuracy = stat.MeanStdDev(acc, nil)
	result.MeanAUC, result.StdAUC = stat.MeanStdDev(auc, nil)

	logger.Info("cross-validation finished",
		log.FoldsKey, k,
		log.AccuracyKey, result.MeanAccuracy,
		log.AUCKey, result.MeanAUC,
	)
	return result, nil
}

// Evaluate は Train() 全体で学習し Test() で評価する
func Evaluate(clean *table.Table, part *model_selection.Partition, newClassifier model.ClassifierFactory, opts Options) (*Score, error) {
	if err := checkInputs(clean, part, newClassifier, opts); err != nil {
		return nil, err
	}
	s, err := fitAndScore("bench.holdout", clean, part.Train(), part.Test(), newClassifier, opts)
	if err != nil {
		return nil, err
	}
	s.Fold = -1
	opts.logger().Info("holdout scored",
		log.OperationKey, log.OperationEvaluate,
		log.AccuracyKey, s.Accuracy,
		log.AUCKey, s.AUC,
	)
	return &s, nil
}

func checkInputs(clean *table.Table, part *model_selection.Partition, newClassifier model.ClassifierFactory, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if clean == nil || part == nil {
		return errors.NewValueError("bench", "clean table and partition are required")
	}
	if part.Table() != clean {
		return errors.NewValueError("bench", "partition does not index the given table")
	}
	if newClassifier == nil {
		return errors.NewValidationError("classifier", "factory must be set", nil)
	}
	return nil
}

// fitAndScore は encoder と classifier を train で学習し test で評価する
// 分類器内の panic は PanicError として返される
func fitAndScore(op string, clean *table.Table, train, test []table.RowRef, newClassifier model.ClassifierFactory, opts Options) (score Score, err error) {
	defer errors.Recover(&err, op)

	trainT, testT := clean.Subset(train), clean.Subset(test)
	yTrain, err := Labels(trainT, opts.StatusColumn, opts.PositiveLevel)
	if err != nil {
		return score, err
	}
	yTest, err := Labels(testT, opts.StatusColumn, opts.PositiveLevel)
	if err != nil {
		return score, err
	}

	enc := opts.Encoder()
	if err := enc.Fit(trainT); err != nil {
		return score, errors.NewModelError(op, "encoder fit", err)
	}
	xTrain, err := enc.Transform(trainT)
	if err != nil {
		return score, errors.NewModelError(op, "encode train", err)
	}
	xTest, err := enc.Transform(testT)
	if err != nil {
		return score, errors.NewModelError(op, "encode test", err)
	}

	start := time.Now()
	clf := newClassifier()
	if err := clf.Fit(xTrain, yTrain); err != nil {
		return score, errors.NewModelError(op, "classifier fit", err)
	}
	proba, err := clf.PredictProba(xTest)
	if err != nil {
		return score, errors.NewModelError(op, "predict", err)
	}
	fitMs := time.Since(start).Milliseconds()

	if r, _ := proba.Dims(); r != len(test) {
		return score, errors.NewDimensionError(op, len(test), r, 0)
	}
	if err := errors.CheckProbabilities(op, proba); err != nil {
		return score, err
	}
	p := mat.NewVecDense(len(test), nil)
	for i := range test {
		p.SetVec(i, proba.At(i, 0))
	}

	acc, err := metrics.Accuracy(yTest, metrics.Threshold(p, opts.Threshold))
	if err != nil {
		return score, err
	}
	auc, err := metrics.AUC(yTest, p)
	if err != nil {
		return score, err
	}
	loss, err := metrics.BinaryLogLoss(yTest, p)
	if err != nil {
		return score, err
	}

	return Score{
		TrainRows: len(train),
		TestRows:  len(test),
		Features:  len(enc.FeatureNames()),
		Accuracy:  acc,
		AUC:       auc,
		LogLoss:   loss,
		FitMs:     fitMs,
	}, nil
}
