package preprocessing

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// SentinelNormalizer は「未記録」を表すセンチネル値を欠損値に置き換えるステージ
//
// 値がセンチネルと等しいとみなされるのは次のいずれかの場合:
//   - 前後の空白を除いた文字列がセンチネルと一致する
//   - 数値列で、値とセンチネルの両方が数値として解釈でき、数値として等しい ("0.0", "-0")
//
// 列は名前で指定する。スキーマに存在しない列は SchemaError になる。
type SentinelNormalizer struct {
	StageName string
	Columns   []string
	Sentinel  string
}

// NewSentinelNormalizer は新しいSentinelNormalizerを作成する
//
// 使用例:
//
//	s := preprocessing.NewSentinelNormalizer("year_sentinel", []string{"construction_year"}, "0")
//	out, report, err := s.Apply(raw)
func NewSentinelNormalizer(stage string, columns []string, sentinel string) *SentinelNormalizer {
	return &SentinelNormalizer{StageName: stage, Columns: columns, Sentinel: sentinel}
}

// Name はステージ名を返す
func (s *SentinelNormalizer) Name() string {
	return s.StageName
}

// Apply はセンチネル値を欠損値に置き換えたテーブルを返す
// 置き換えが発生した行だけを複製するため、入力テーブルは変更されない
func (s *SentinelNormalizer) Apply(t *table.Table) (*table.Table, model.StageReport, error) {
	report := model.StageReport{Stage: s.StageName, RowsIn: t.Len()}
	for _, col := range s.Columns {
		if !t.Has(col) {
			return nil, report, errors.NewSchemaError(s.StageName, col)
		}
	}

	sentinelNum, sentinelErr := strconv.ParseFloat(strings.TrimSpace(s.Sentinel), 64)
	numeric := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		numeric[col] = sentinelErr == nil && t.Kind(col) == table.KindNumeric
	}

	out, err := t.Map(func(row table.Row) (table.Row, error) {
		var cloned table.Row
		for _, col := range s.Columns {
			if !s.matches(row.Get(col), numeric[col], sentinelNum) {
				continue
			}
			if cloned == nil {
				cloned = row.Clone()
			}
			cloned[col] = table.Missing()
			report.ValuesReplaced++
		}
		if cloned == nil {
			return row, nil
		}
		return cloned, nil
	})
	if err != nil {
		return nil, report, err
	}
	report.RowsOut = out.Len()
	return out, report, nil
}

func (s *SentinelNormalizer) matches(v table.Value, numeric bool, sentinelNum float64) bool {
	if v.Missing {
		return false
	}
	raw := strings.TrimSpace(v.Raw)
	if raw == s.Sentinel {
		return true
	}
	if !numeric {
		return false
	}
	f, err := strconv.ParseFloat(raw, 64)
	return err == nil && f == sentinelNum
}
