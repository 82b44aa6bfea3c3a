package report

import (
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
)

// NewPackageChart plots the line coverage of every package, sorted by name.
func NewPackageChart(title string, packages coverage.PackageTotals) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Line coverage by package (%)",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)

	names := packages.Names()
	data := make([]opts.BarData, 0, len(names))
	for _, name := range names {
		data = append(data, opts.BarData{
			Name:  name,
			Value: percentValue(packages[name].PercentString()),
		})
	}
	bar.SetXAxis(names).AddSeries("Coverage", data)
	return bar
}

// RenderChart writes the chart page as HTML.
func RenderChart(w io.Writer, title string, packages coverage.PackageTotals) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(NewPackageChart(title, packages))
	return page.Render(w)
}

// WriteChart creates the HTML chart file in a given path.
func WriteChart(path, title string, packages coverage.PackageTotals) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create chart file %s", path)
	}
	defer f.Close()

	if err := RenderChart(f, title, packages); err != nil {
		return errors.Wrapf(err, "unable to render chart %s", path)
	}
	log.Infof("Chart saved to %s", path)
	return nil
}
