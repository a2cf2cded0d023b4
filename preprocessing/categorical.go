package preprocessing

import (
	"strings"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// CategoricalNormalizer はクリーンテーブルの列を型付けする最後のステージ
//
// カテゴリ列: 前後の空白を除去し、空文字は欠損値にする。残った水準を
// ソートしてテーブルのドメインとして固定する。
// 数値列: 値が数値として解釈できることだけを検証する（ValidationError）。
// 識別子列: 不透明な文字列キーとしてそのまま残す。
type CategoricalNormalizer struct{}

// Name は "categorical" を返す
func (c *CategoricalNormalizer) Name() string { return "categorical" }

// Apply は model.Stage を実装する
func (c *CategoricalNormalizer) Apply(t *table.Table) (*table.Table, model.StageReport, error) {
	report := model.StageReport{Stage: c.Name(), RowsIn: t.Len()}

	categorical := t.ColumnsOfKind(table.KindCategorical)
	numeric := t.ColumnsOfKind(table.KindNumeric)

	levels := make(map[string]map[string]bool, len(categorical))
	for _, col := range categorical {
		levels[col] = make(map[string]bool)
	}

	out, err := t.Map(func(row table.Row) (table.Row, error) {
		for _, col := range numeric {
			v := row.Get(col)
			if v.Missing {
				continue
			}
			if _, err := v.Float(); err != nil {
				return nil, errors.NewFieldValidationError(c.Name(), col, "value is not a number", v.Raw)
			}
		}

		var cloned table.Row
		for _, col := range categorical {
			v := row.Get(col)
			if v.Missing {
				continue
			}
			trimmed := strings.TrimSpace(v.Raw)
			if trimmed != v.Raw || trimmed == "" {
				if cloned == nil {
					cloned = row.Clone()
				}
				report.ValuesReplaced++
				if trimmed == "" {
					cloned[col] = table.Missing()
					continue
				}
				cloned[col] = table.V(trimmed)
			}
			levels[col][trimmed] = true
		}
		if cloned == nil {
			return row, nil
		}
		return cloned, nil
	})
	if err != nil {
		return nil, report, err
	}

	domains := make(map[string][]string, len(levels))
	for col, set := range levels {
		domain := make([]string, 0, len(set))
		for level := range set {
			domain = append(domain, level)
		}
		domains[col] = domain
	}
	out = out.WithDomains(domains)
	report.RowsOut = out.Len()
	return out, report, nil
}
