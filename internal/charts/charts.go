// Package charts renders score vectors and deck comparisons as interactive
// HTML charts.
package charts

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/deck-engine/internal/matchup"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title    string   // Chart title
	Subtitle string   // Chart subtitle
	Width    string   // Chart width (e.g., "900px")
	Height   string   // Chart height (e.g., "500px")
	Theme    string   // Chart theme
	Colors   []string // Series colors, cycled
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "900px",
		Height: "500px",
		Theme:  "light",
		Colors: []string{"#5470C6", "#EE6666", "#91CC75", "#FAC858", "#73C0DE", "#3BA272", "#FC8452", "#9A60B4"},
	}
}

// Series is one deck's scores on a chart.
type Series struct {
	Name   string
	Scores scoring.Vector
}

// RenderScoreRadar draws every series on a radar with one axis per score
// dimension, each ranging 0-100.
func RenderScoreRadar(w io.Writer, series []Series, config ChartConfig) error {
	if len(series) == 0 {
		return fmt.Errorf("no data series provided")
	}

	indicators := make([]*opts.Indicator, len(scoring.Dimensions))
	for i, dim := range scoring.Dimensions {
		indicators[i] = &opts.Indicator{Name: dimensionLabel(dim), Min: 0, Max: 100}
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(series) > 1)}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			Shape:       "polygon",
			SplitNumber: 5,
		}),
	)

	for i, s := range series {
		values := make([]float32, len(scoring.Dimensions))
		for j, dim := range scoring.Dimensions {
			values[j] = float32(s.Scores.Get(dim))
		}
		radar.AddSeries(s.Name, []opts.RadarData{{Name: s.Name, Value: values}},
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color(config, i)}),
		)
	}

	if err := radar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderComparison draws the per-dimension scores of both decks side by
// side. The subtitle carries the estimated win rate unless one is set.
func RenderComparison(w io.Writer, cmp matchup.Comparison, nameA, nameB string, config ChartConfig) error {
	if len(cmp.Categories) == 0 {
		return fmt.Errorf("comparison has no categories")
	}
	if config.Subtitle == "" {
		config.Subtitle = fmt.Sprintf("%s wins an estimated %.1f%% against %s", nameA, cmp.WinRate, nameB)
	}

	labels := make([]string, len(cmp.Categories))
	a := make([]opts.BarData, len(cmp.Categories))
	b := make([]opts.BarData, len(cmp.Categories))
	for i, c := range cmp.Categories {
		labels[i] = dimensionLabel(c.Dimension)
		a[i] = opts.BarData{Value: c.A}
		b[i] = opts.BarData{Value: c.B}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100}),
	)

	bar.SetXAxis(labels).
		AddSeries(nameA, a, charts.WithItemStyleOpts(opts.ItemStyle{Color: color(config, 0)})).
		AddSeries(nameB, b, charts.WithItemStyleOpts(opts.ItemStyle{Color: color(config, 1)})).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteFile renders into a new file at outputPath.
func WriteFile(outputPath string, render func(io.Writer) error) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close chart file: %w", err)
	}
	return nil
}

// OpenInBrowser opens an HTML file in the default browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func dimensionLabel(dim string) string {
	label := strings.ReplaceAll(dim, "_", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

func color(config ChartConfig, i int) string {
	if len(config.Colors) == 0 {
		return ""
	}
	return config.Colors[i%len(config.Colors)]
}
