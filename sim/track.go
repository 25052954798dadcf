package sim

import (
	"image"
	"image/color"
	"math"
)

// DrivableThreshold is the exclusive upper bound on every colour channel of
// a road pixel. Anything at or above it counts as grass or wall.
const DrivableThreshold = 50

// Surface answers whether a point in simulation space is road.
type Surface interface {
	DrivableAt(x, y float64) bool
}

// Vec is a point or displacement in simulation (pixel) space.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Cell is an integer grid position.
type Cell struct {
	X, Y int
}

// Round snaps v to the nearest cell.
func (v Vec) Round() Cell {
	return Cell{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

// Track is an immutable drivability grid derived from a track image.
type Track struct {
	width, height int
	drivable      []bool
	count         int
}

// NewTrack thresholds img into a Track. The image bounds become the track
// size; alpha is ignored.
func NewTrack(img image.Image) *Track {
	b := img.Bounds()
	return NewTrackFunc(b.Dx(), b.Dy(), func(x, y int) bool {
		c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		return c.R < DrivableThreshold && c.G < DrivableThreshold && c.B < DrivableThreshold
	})
}

// NewTrackFunc builds a width x height track whose cells are classified by
// drivable. The function is called exactly once per cell.
func NewTrackFunc(width, height int, drivable func(x, y int) bool) *Track {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	t := &Track{
		width:    width,
		height:   height,
		drivable: make([]bool, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if drivable(x, y) {
				t.drivable[y*width+x] = true
				t.count++
			}
		}
	}
	return t
}

// Width returns the track width in pixels.
func (t *Track) Width() int { return t.width }

// Height returns the track height in pixels.
func (t *Track) Height() int { return t.height }

// DrivableCount returns the number of road pixels.
func (t *Track) DrivableCount() int { return t.count }

// Center returns the middle of the track, used as the spawn fallback.
func (t *Track) Center() Vec {
	return Vec{X: float64(t.width / 2), Y: float64(t.height / 2)}
}

// IsDrivable reports whether the pixel (x, y) is road. Coordinates outside
// the grid are never drivable.
func (t *Track) IsDrivable(x, y int) bool {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return false
	}
	return t.drivable[y*t.width+x]
}

// DrivableAt floors a continuous position onto the pixel grid.
func (t *Track) DrivableAt(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	fx, fy := math.Floor(x), math.Floor(y)
	if fx < 0 || fy < 0 || fx >= float64(t.width) || fy >= float64(t.height) {
		return false
	}
	return t.IsDrivable(int(fx), int(fy))
}
