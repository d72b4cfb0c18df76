package report

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	snapshotWidth  = 1000
	snapshotHeight = 700
	panelMargin    = 40

	// Correlation curves are plotted every decimate-th sample.
	decimate = 10
	// Distance trend axis upper bound in meters.
	trendMax = 2.0
)

var (
	colorBackground = color.RGBA{0x1e, 0x1e, 0x1e, 0xff}
	colorPanel      = color.RGBA{0x2e, 0x2e, 0x2e, 0xff}
	colorText       = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	colorCorr       = color.RGBA{0x4f, 0xc3, 0xf7, 0xff}
	colorTrend      = color.RGBA{0x81, 0xc7, 0x84, 0xff}
	colorMarker     = color.RGBA{0xff, 0x70, 0x43, 0xff}
)

// Snapshot is the data drawn into a PNG.
type Snapshot struct {
	Time        time.Time
	Correlation []float64 // |cross-correlation| of the latest period
	DirectIndex int       // -1 to omit the marker
	EchoIndex   int       // -1 to omit the marker
	Distances   []float64 // trend, oldest first
	HistorySize int       // x-axis length of the trend panel
}

// Render draws the snapshot: the correlation envelope on top, the distance
// trend below.
func Render(s Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, snapshotWidth, snapshotHeight))
	fill(img, img.Bounds(), colorBackground)

	half := snapshotHeight / 2
	top := image.Rect(panelMargin, panelMargin, snapshotWidth-panelMargin/2, half-panelMargin/2)
	bottom := image.Rect(panelMargin, half+panelMargin, snapshotWidth-panelMargin/2, snapshotHeight-panelMargin)

	drawCorrelation(img, top, s)
	drawTrend(img, bottom, s)

	if !s.Time.IsZero() {
		label(img, snapshotWidth-200, 16, s.Time.Format(time.DateTime))
	}
	return img
}

// WriteSnapshot encodes the rendered snapshot as PNG.
func WriteSnapshot(w io.Writer, s Snapshot) error {
	return png.Encode(w, Render(s))
}

// SaveSnapshot writes a new timestamped PNG in dir and returns its path.
func SaveSnapshot(dir string, s Snapshot, now time.Time) (string, error) {
	return save(dir, FileName(now, ".png"), func(w io.Writer) error {
		return WriteSnapshot(w, s)
	})
}

func drawCorrelation(img *image.RGBA, r image.Rectangle, s Snapshot) {
	fill(img, r, colorPanel)
	label(img, r.Min.X, r.Min.Y-8, "Cross-correlation |r(lag)|")

	n := len(s.Correlation)
	if n == 0 {
		label(img, r.Min.X+10, r.Min.Y+20, "no data")
		return
	}

	peak := 0.0
	for _, v := range s.Correlation {
		peak = max(peak, v)
	}
	top := peak*1.1 + 0.1

	x := func(i int) int { return r.Min.X + i*(r.Dx()-1)/max(n-1, 1) }
	y := func(v float64) int { return r.Max.Y - 1 - int(v/top*float64(r.Dy()-1)) }

	px, py := x(0), y(s.Correlation[0])
	for i := decimate; i < n; i += decimate {
		cx, cy := x(i), y(s.Correlation[i])
		line(img, px, py, cx, cy, colorCorr)
		px, py = cx, cy
	}

	for _, idx := range []int{s.DirectIndex, s.EchoIndex} {
		if idx >= 0 && idx < n {
			line(img, x(idx), r.Min.Y, x(idx), r.Max.Y-1, colorMarker)
		}
	}
	label(img, r.Min.X, r.Max.Y+14, "0")
	label(img, r.Max.X-40, r.Max.Y+14, strconv.Itoa(n))
}

func drawTrend(img *image.RGBA, r image.Rectangle, s Snapshot) {
	fill(img, r, colorPanel)
	label(img, r.Min.X, r.Min.Y-8, "Distance trend (m)")
	label(img, r.Min.X-30, r.Min.Y+10, strconv.FormatFloat(trendMax, 'f', 1, 64))
	label(img, r.Min.X-30, r.Max.Y, "0.0")

	size := max(s.HistorySize, len(s.Distances), 2)
	x := func(i int) int { return r.Min.X + i*(r.Dx()-1)/(size-1) }
	y := func(v float64) int {
		v = min(max(v, 0), trendMax)
		return r.Max.Y - 1 - int(v/trendMax*float64(r.Dy()-1))
	}

	for i := 1; i < len(s.Distances); i++ {
		line(img, x(i-1), y(s.Distances[i-1]), x(i), y(s.Distances[i]), colorTrend)
	}
	if len(s.Distances) == 1 {
		img.Set(x(0), y(s.Distances[0]), colorTrend)
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	xdraw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, xdraw.Src)
}

func label(img *image.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(colorText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// line draws a segment with Bresenham's algorithm.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
