package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pumpprep/core/table"
)

// StageReport はステージ1回分の診断情報
type StageReport struct {
	Stage          string `json:"stage"`
	RowsIn         int    `json:"rows_in"`
	RowsOut        int    `json:"rows_out"`
	Dropped        int    `json:"dropped"`
	ValuesReplaced int    `json:"values_replaced,omitempty"`
}

// Stage はテーブルを受け取り新しいテーブルを返すパイプラインの1ステップ
// 入力テーブルを変更してはならない
type Stage interface {
	// Name はログと診断に使うステージ名を返す
	Name() string

	// Apply はステージを実行する
	Apply(t *table.Table) (*table.Table, StageReport, error)
}

// Transformer は数値行列の変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// TableEncoder はクリーンなテーブルをモデル入力の行列に変換する
// 訓練部分でFitし、評価部分には同じ符号化を適用する
type TableEncoder interface {
	Fit(t *table.Table) error
	Transform(t *table.Table) (*mat.Dense, error)
	FeatureNames() []string
}

// Classifier は二値分類器のインターフェース
// y は 0/1 の列ベクトル、PredictProba は陽性クラスの確率を1列で返す
type Classifier interface {
	Fit(X, y mat.Matrix) error
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// ClassifierFactory はフォールドごとに新しい分類器を作る
type ClassifierFactory func() Classifier

// EncoderFactory はフォールドごとに新しいエンコーダを作る
type EncoderFactory func() TableEncoder
