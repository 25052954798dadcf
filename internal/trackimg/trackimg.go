// Package trackimg loads racetrack images from disk.
package trackimg

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/Fouad1806/self-driving-car/sim"
)

// Load decodes a PNG or JPEG track and scales it to width x height with
// nearest-neighbour sampling when its size differs. A non-positive width or
// height keeps the image's own size.
func Load(path string, width, height int) (*sim.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening track image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding track image %s: %w", path, err)
	}
	return sim.NewTrack(Scale(img, width, height)), nil
}

// Scale resizes img to width x height. It returns img itself when no
// resizing is needed.
func Scale(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 || height <= 0 || (b.Dx() == width && b.Dy() == height) {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
