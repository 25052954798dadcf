package trackimg

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripImage is white with a black vertical road in columns [10,20).
func stripImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= 10 && x < 20 {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadNativeSize(t *testing.T) {
	path := writePNG(t, stripImage(40, 30))

	track, err := Load(path, 40, 30)
	require.NoError(t, err)
	assert.Equal(t, 40, track.Width())
	assert.Equal(t, 30, track.Height())
	assert.Equal(t, 10*30, track.DrivableCount())
	assert.True(t, track.IsDrivable(10, 0))
	assert.False(t, track.IsDrivable(20, 0))
}

func TestLoadScales(t *testing.T) {
	path := writePNG(t, stripImage(40, 30))

	track, err := Load(path, 80, 60)
	require.NoError(t, err)
	assert.Equal(t, 80, track.Width())
	assert.Equal(t, 60, track.Height())
	assert.Equal(t, 20*60, track.DrivableCount())
	assert.True(t, track.IsDrivable(20, 59))
	assert.True(t, track.IsDrivable(39, 0))
	assert.False(t, track.IsDrivable(40, 0))
}

func TestLoadKeepsSizeWhenUnset(t *testing.T) {
	path := writePNG(t, stripImage(40, 30))
	track, err := Load(path, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 40, track.Width())
}

func TestLoadJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 16, 16)), nil))
	require.NoError(t, f.Close())

	track, err := Load(path, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, 16*16, track.DrivableCount())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"), 10, 10)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = Load(path, 10, 10)
	assert.Error(t, err)
}
