package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"datasweeper/internal/dataset"
)

// MaxSeries is how many numeric columns are charted.
const MaxSeries = 2

var (
	ErrNothingToChart = errors.New("no numeric data to chart")
	ErrUnknownFormat  = errors.New("unknown chart format")
)

// Format is the image encoding of a rendered chart.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg"; empty means png.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

var seriesColors = []drawing.Color{gochart.ColorBlue, gochart.ColorGreen}

// Data is the numeric slice of a table that gets charted: up to MaxSeries
// columns over the row index.
type Data struct {
	Columns []string
	Labels  []string
	Values  [][]float64 // Values[series][row]
}

// Extract takes the first MaxSeries numeric columns of table, in column order,
// limited to maxRows rows. Missing cells chart as zero.
func Extract(table dataset.Table, maxRows int) (*Data, error) {
	var idx []int
	for i, c := range table.Columns {
		if c.Type == dataset.TypeInt || c.Type == dataset.TypeFloat {
			idx = append(idx, i)
			if len(idx) == MaxSeries {
				break
			}
		}
	}

	rows := len(table.Rows)
	if maxRows > 0 && rows > maxRows {
		rows = maxRows
	}
	if len(idx) == 0 || rows == 0 {
		return nil, ErrNothingToChart
	}

	d := &Data{
		Columns: make([]string, len(idx)),
		Labels:  make([]string, rows),
		Values:  make([][]float64, len(idx)),
	}
	for s, col := range idx {
		d.Columns[s] = table.Columns[col].Name
		d.Values[s] = make([]float64, rows)
		for r := 0; r < rows; r++ {
			d.Values[s][r] = toFloat(table.Rows[r][col])
		}
	}
	for r := 0; r < rows; r++ {
		d.Labels[r] = strconv.Itoa(r)
	}
	return d, nil
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	default:
		return 0
	}
}

// Options controls chart geometry.
type Options struct {
	MaxBars    int
	Width      int
	Height     int
	BarWidth   int
	BarSpacing int
}

// Renderer draws bar charts of datasets.
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer, filling unset options with defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.MaxBars <= 0 {
		opts.MaxBars = 200
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = 10
	}
	if opts.BarSpacing <= 0 {
		opts.BarSpacing = 4
	}
	return &Renderer{opts: opts}
}

// Render draws the current view of ds. Each row gets one bar per charted
// column, side by side, on a shared axis through zero.
func (r *Renderer) Render(w io.Writer, ds *dataset.Dataset, format Format) error {
	data, err := Extract(ds.Table(), r.opts.MaxBars)
	if err != nil {
		return err
	}
	return r.RenderData(w, data, format)
}

// RenderData draws already extracted data.
func (r *Renderer) RenderData(w io.Writer, data *Data, format Format) error {
	var provider gochart.RendererProvider
	switch format {
	case FormatPNG:
		provider = gochart.PNG
	case FormatSVG:
		provider = gochart.SVG
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	bars := make([]gochart.Value, 0, len(data.Labels)*len(data.Columns))
	lo, hi := 0.0, 0.0
	for row, label := range data.Labels {
		for s := range data.Columns {
			v := data.Values[s][row]
			lo, hi = math.Min(lo, v), math.Max(hi, v)

			name := ""
			if s == 0 {
				name = label
			}
			color := seriesColors[s%len(seriesColors)]
			bars = append(bars, gochart.Value{
				Label: name,
				Value: v,
				Style: gochart.Style{FillColor: color, StrokeColor: color},
			})
		}
	}
	if lo == hi {
		hi = lo + 1
	}

	width := len(bars)*(r.opts.BarWidth+r.opts.BarSpacing) + 120
	if width < r.opts.Width {
		width = r.opts.Width
	}

	bc := gochart.BarChart{
		Title:        strings.Join(data.Columns, ", "),
		Background:   gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:        width,
		Height:       r.opts.Height,
		BarWidth:     r.opts.BarWidth,
		BarSpacing:   r.opts.BarSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}

	if err := bc.Render(provider, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
