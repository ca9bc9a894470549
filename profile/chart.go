// package profile renders circuit summaries to charts for budget tracking:
// one bar group per circuit, one series per metric (MULMOD, ADDMOD,
// ASSERT_EQ, POSEIDON, RLC).
package profile

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rs/zerolog/log"

	"github.com/dragan2234/garaga"
)

// WriteSummaryChart renders the summaries as an HTML bar chart at path.
func WriteSummaryChart(summaries []garaga.Summary, title string, path string) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no summaries to chart")
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "modular builtin and transcript budget per circuit",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "circuit"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)

	names := make([]string, len(summaries))
	for i, s := range summaries {
		names[i] = s.Circuit
	}
	bar.SetXAxis(names)

	series := []struct {
		name string
		pick func(garaga.Summary) int
	}{
		{"MULMOD", func(s garaga.Summary) int { return s.MulMod }},
		{"ADDMOD", func(s garaga.Summary) int { return s.AddMod }},
		{"ASSERT_EQ", func(s garaga.Summary) int { return s.AssertEq }},
		{"POSEIDON", func(s garaga.Summary) int { return s.Poseidon }},
		{"RLC", func(s garaga.Summary) int { return s.RLC }},
	}
	for _, sr := range series {
		data := make([]opts.BarData, len(summaries))
		for i, s := range summaries {
			data[i] = opts.BarData{Value: sr.pick(s)}
		}
		bar.AddSeries(sr.name, data)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating chart file: %v", err)
	}
	defer file.Close()

	if err := bar.Render(file); err != nil {
		return fmt.Errorf("error rendering chart: %v", err)
	}
	log.Debug().Str("path", path).Int("circuits", len(summaries)).Msg("wrote summary chart")
	return nil
}
