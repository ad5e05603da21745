package app

import (
	"strings"

	"promptlab/domain/design"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// HyperCorrelation is the Pearson correlation between a numeric
// hyperparameter column and output length across the run's records.
type HyperCorrelation struct {
	Column      string  `json:"column"`
	Correlation float64 `json:"correlation"`
}

// RunSummary aggregates a run's records into per-column statistics so runs
// under different composition policies can be compared at a glance.
type RunSummary struct {
	Records      int                `json:"records"`
	OutputLength ColumnSummary      `json:"output_length"`
	Numeric      []ColumnSummary    `json:"numeric_columns,omitempty"`
	Correlations []HyperCorrelation `json:"correlations,omitempty"`
}

// Summarize computes descriptive statistics over the flattened records.
// columns gives the stable column order from the design; non-numeric columns
// are skipped.
func Summarize(columns []string, records []design.Record) *RunSummary {
	summary := &RunSummary{Records: len(records)}
	if len(records) == 0 {
		return summary
	}

	outputLens := make([]float64, len(records))
	for i, rec := range records {
		if out, ok := rec[design.ColOutput].(string); ok {
			outputLens[i] = float64(len(out))
		}
	}
	summary.OutputLength = describe("output_length", outputLens)

	for _, col := range columns {
		if col == design.ColPrompt || col == design.ColOutput {
			continue
		}
		values, lens := numericColumn(col, records, outputLens)
		if len(values) == 0 {
			continue
		}
		summary.Numeric = append(summary.Numeric, describe(col, values))
		if strings.HasPrefix(col, design.HyperPrefix) && len(values) == len(records) && len(values) > 1 {
			summary.Correlations = append(summary.Correlations, HyperCorrelation{
				Column:      col,
				Correlation: stat.Correlation(values, lens, nil),
			})
		}
	}
	return summary
}

// numericColumn extracts the column's numeric values, paired with the output
// lengths of the records they came from.
func numericColumn(col string, records []design.Record, outputLens []float64) (values, lens []float64) {
	for i, rec := range records {
		v, ok := rec[col]
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		values = append(values, f)
		lens = append(lens, outputLens[i])
	}
	return values, lens
}

func describe(col string, data []float64) ColumnSummary {
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	stdDev, _ := stats.StandardDeviation(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	return ColumnSummary{
		Column: col,
		Count:  len(data),
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
