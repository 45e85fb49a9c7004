package compare

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/arsf-data/dem.toolkit/internal/demerror"
)

// histogramBins for the difference distribution.
const histogramBins = 50

// WriteHistogram renders the difference distribution to a PNG at path.
func WriteHistogram(diffs []float64, path string) error {
	if len(diffs) == 0 {
		return demerror.NewArgumentError("no differences to plot")
	}

	p := plot.New()
	p.Title.Text = "Elevation difference distribution"
	p.X.Label.Text = "Difference (m)"
	p.Y.Label.Text = "Pixels"

	h, err := plotter.NewHist(plotter.Values(diffs), histogramBins)
	if err != nil {
		return fmt.Errorf("building histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving histogram %s: %w", path, err)
	}
	return nil
}
