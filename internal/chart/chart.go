// Package chart renders capacity records as a line chart.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/jgoulah/capplot/internal/config"
	"github.com/jgoulah/capplot/pkg/models"
)

// FormatHTML is a standalone page with the chart inlined as SVG
const FormatHTML = "html"

// Options holds what the chart shows and how big it is
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Legend string
	Color  color.Color
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns the options of the stock capacity chart
func DefaultOptions() Options {
	return Options{
		Title:  config.DefaultTitle,
		XLabel: config.DefaultXLabel,
		YLabel: config.DefaultYLabel,
		Legend: config.DefaultLegend,
		Color:  color.RGBA{B: 0xFF, A: 0xFF},
		Width:  vg.Length(config.DefaultWidth) * vg.Inch,
		Height: vg.Length(config.DefaultHeight) * vg.Inch,
	}
}

// OptionsFromConfig maps chart settings from the config file onto Options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	c, err := config.ParseHexColor(cfg.GetColor())
	if err != nil {
		return Options{}, err
	}

	return Options{
		Title:  cfg.GetTitle(),
		XLabel: cfg.GetXLabel(),
		YLabel: cfg.GetYLabel(),
		Legend: cfg.GetLegend(),
		Color:  c,
		Width:  vg.Length(cfg.GetWidth()) * vg.Inch,
		Height: vg.Length(cfg.GetHeight()) * vg.Inch,
	}, nil
}

// Renderer turns records into a chart
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer, filling unset options from DefaultOptions
func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.XLabel == "" {
		opts.XLabel = def.XLabel
	}
	if opts.YLabel == "" {
		opts.YLabel = def.YLabel
	}
	if opts.Legend == "" {
		opts.Legend = def.Legend
	}
	if opts.Color == nil {
		opts.Color = def.Color
	}
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	return &Renderer{opts: opts}
}

// Options returns the effective options
func (r *Renderer) Options() Options {
	return r.opts
}

// XYs converts records to plot points, keeping input order
func XYs(records []models.Record) plotter.XYs {
	pts := make(plotter.XYs, len(records))
	for i, rec := range records {
		pts[i].X = rec.Time
		pts[i].Y = rec.Capacity
	}
	return pts
}

// legendEntry is one legend row: a name and the styles drawn beside it
type legendEntry struct {
	name   string
	thumbs []plot.Thumbnailer
}

// layers returns what Plot draws: the grid, then a solid line through the
// points in input order with circle markers on top, and a single legend
// entry. gonum refuses empty series, so with no records only the grid is
// drawn while the legend keeps its entry.
func (r *Renderer) layers(records []models.Record) ([]plot.Plotter, []legendEntry, error) {
	lineStyle := draw.LineStyle{Color: r.opts.Color, Width: vg.Points(1.5)}
	glyphStyle := draw.GlyphStyle{Color: r.opts.Color, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}

	plotters := []plot.Plotter{plotter.NewGrid()}
	line := &plotter.Line{LineStyle: lineStyle}
	points := &plotter.Scatter{GlyphStyle: glyphStyle}

	if len(records) > 0 {
		var err error
		line, points, err = plotter.NewLinePoints(XYs(records))
		if err != nil {
			return nil, nil, fmt.Errorf("building series: %w", err)
		}
		line.LineStyle = lineStyle
		points.GlyphStyle = glyphStyle
		plotters = append(plotters, line, points)
	}

	legend := []legendEntry{{name: r.opts.Legend, thumbs: []plot.Thumbnailer{line, points}}}
	return plotters, legend, nil
}

// Plot builds the chart. An empty slice gives an empty, framed chart.
func (r *Renderer) Plot(records []models.Record) (*plot.Plot, error) {
	plotters, legend, err := r.layers(records)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = r.opts.Title
	p.X.Label.Text = r.opts.XLabel
	p.Y.Label.Text = r.opts.YLabel
	p.Legend.Top = true
	p.Add(plotters...)
	for _, e := range legend {
		p.Legend.Add(e.name, e.thumbs...)
	}

	return p, nil
}

// WriteTo renders the chart in the given format: any gonum image format
// (svg, png, pdf, eps, jpg, tif) or html.
func (r *Renderer) WriteTo(w io.Writer, records []models.Record, format string) (int64, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == FormatHTML {
		page, err := r.Page(records)
		if err != nil {
			return 0, err
		}
		n, err := w.Write(page)
		return int64(n), err
	}

	p, err := r.Plot(records)
	if err != nil {
		return 0, err
	}

	wt, err := p.WriterTo(r.opts.Width, r.opts.Height, format)
	if err != nil {
		return 0, fmt.Errorf("creating %s writer: %w", format, err)
	}

	return wt.WriteTo(w)
}

// SVG renders the chart as an inline-ready <svg> element
func (r *Renderer) SVG(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf, records, "svg"); err != nil {
		return nil, err
	}

	// drop the xml prolog so the element can sit inside an html body
	b := buf.Bytes()
	if i := bytes.Index(b, []byte("<svg")); i > 0 {
		b = b[i:]
	}
	return b, nil
}

// Save writes the chart to path, choosing the format from the extension
func (r *Renderer) Save(path string, records []models.Record) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return fmt.Errorf("output %s has no extension to pick a format from", path)
	}

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf, records, ext); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}

	return nil
}
