// Package pumpprep prepares water-point survey records for pump status
// classification.
//
// 生の調査データ(CSV またはPostgres)を列名付きのテーブルとして読み込み、
// センチネル値の正規化、必須項目・状態・人口のフィルタ、列の射影、
// カテゴリ型への変換を順に適用したうえで、シード固定の層化 train/test
// 分割と k-fold を生成します。
//
// # Quick Start
//
//	raw, err := dataset.LoadCSVFile("pumps.csv", dataset.CSVOptions{
//	    Kinds: preprocessing.DefaultConfig().Kinds(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	p, err := preprocessing.NewPipeline(preprocessing.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	result, err := p.Run(raw)
//	if err != nil {
//	    return err // SchemaError, ValidationError or DataInsufficientError
//	}
//
//	train := result.Clean.Subset(result.Partition.Train())
//
// # Packages
//
//   - core/table: 列名付きテーブルと欠損値
//   - preprocessing: パイプラインの各ステージ、エンコーダ
//   - model_selection: 層化分割と層化k-fold
//   - bench: フォールドごとの学習・評価ハーネス
//   - dataset: CSV(gota)とPostgres(sqlx)のローダ
//   - metrics: accuracy, ROC AUC, log loss
//   - pkg/errors, pkg/log: エラー型と構造化ログ
//
// The pumpprep command wraps these packages: prepare, bench and config.
package pumpprep
