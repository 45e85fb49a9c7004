package compare

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
)

// WriteReport renders an interactive HTML report of the comparison: a bar
// chart of the difference distribution with the summary statistics in the
// chart subtitle.
func WriteReport(path, referenceName, candidateName string, stats Stats, diffs []float64) error {
	if len(diffs) == 0 {
		return demerror.NewArgumentError("no differences to report")
	}

	labels, counts := binDiffs(diffs, histogramBins)
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "DEM comparison",
			Width:     "1000px",
			Height:    "550px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s vs %s", referenceName, candidateName),
			Subtitle: fmt.Sprintf(
				"n=%d mean=%.3f m median=%.3f m stddev=%.3f m rmse=%.3f m p5=%.3f m p95=%.3f m",
				stats.Count, stats.Mean, stats.Median, stats.StdDev,
				stats.RMSE, stats.Percentile5, stats.Percentile95),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Difference (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pixels"}),
	)
	bar.SetXAxis(labels).AddSeries("pixels", data)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return fmt.Errorf("rendering report %s: %w", path, err)
	}
	return nil
}

// binDiffs buckets the differences into equal-width bins across their range.
func binDiffs(diffs []float64, bins int) ([]string, []int) {
	min, max := diffs[0], diffs[0]
	for _, d := range diffs {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	width := (max - min) / float64(bins)
	if width == 0 {
		return []string{fmt.Sprintf("%.3f", min)}, []int{len(diffs)}
	}

	counts := make([]int, bins)
	for _, d := range diffs {
		i := int((d - min) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	labels := make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.3f", min+(float64(i)+0.5)*width)
	}
	return labels, counts
}
