package report

import (
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cidaily/cidaily/internal/cidaily/outcome"
)

const chartsFileName = "cidaily-charts.html"

// WriteCharts renders an outcome-distribution chart page next to the report
// body. The chart id is fixed so regenerated pages stay comparable.
func (r *Report) WriteCharts(dir string) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID:   "outcomes-by-source",
			PageTitle: r.Repo + " daily summary",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Outcomes by source",
			Subtitle: r.Repo,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	tallies := []outcome.Tally{r.HostedTally(), r.ClientTally(), r.ThirdPartyTally()}
	bar.SetXAxis([]string{"hosted", "clients", "third-party"})
	bar.AddSeries("pass", barData(tallies, func(t outcome.Tally) int { return t.Pass }))
	bar.AddSeries("fail", barData(tallies, func(t outcome.Tally) int { return t.Fail }))
	bar.AddSeries("error", barData(tallies, func(t outcome.Tally) int { return t.Error }))
	bar.AddSeries("incomplete", barData(tallies, func(t outcome.Tally) int { return t.Incomplete }))

	path := filepath.Join(dir, chartsFileName)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create chart page %s", path)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return errors.Wrapf(err, "couldn't render chart page %s", path)
	}
	log.Debugf("Chart page saved to %s", path)
	return nil
}

func barData(tallies []outcome.Tally, count func(outcome.Tally) int) []opts.BarData {
	data := make([]opts.BarData, 0, len(tallies))
	for _, t := range tallies {
		data = append(data, opts.BarData{Value: count(t)})
	}
	return data
}
