package reporting

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"marketlens/internal/domain"
)

var (
	strategyColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	benchmarkColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// WriteChart renders the strategy and benchmark curves of run as a PNG.
func WriteChart(w io.Writer, run *domain.BacktestRun) error {
	if len(run.Curve) == 0 {
		return fmt.Errorf("run %s has no curve", run.ID)
	}

	p := plot.New()
	p.Title.Text = Title(run.Strategy)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Portfolio Value (Started at 100)"
	p.X.Tick.Marker = plot.TimeTicks{Format: domain.DateLayout}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	strat := make(plotter.XYs, len(run.Curve))
	bench := make(plotter.XYs, len(run.Curve))
	for i, pt := range run.Curve {
		x := float64(pt.Date.Unix())
		strat[i] = plotter.XY{X: x, Y: pt.Strategy}
		bench[i] = plotter.XY{X: x, Y: pt.Benchmark}
	}

	sl, err := plotter.NewLine(strat)
	if err != nil {
		return err
	}
	sl.Color = strategyColor
	sl.Width = vg.Points(1.5)

	bl, err := plotter.NewLine(bench)
	if err != nil {
		return err
	}
	bl.Color = benchmarkColor
	bl.Width = vg.Points(1.5)

	p.Add(sl, bl)
	p.Legend.Add("Strategy", sl)
	p.Legend.Add("Buy and Hold Benchmark", bl)

	wt, err := p.WriterTo(15*vg.Inch, 7*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
