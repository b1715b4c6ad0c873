package preview

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crystio/pkg/datablock"
)

func TestImageNormalizes(t *testing.T) {
	frame := &datablock.Frame{Data: []float64{10, 20, 30, 40}, Width: 2, Height: 2}
	img, err := Image(frame)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 2, bounds.Dx())
	assert.Equal(t, 2, bounds.Dy())

	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(65535), img.Gray16At(1, 1).Y)
	assert.Equal(t, uint16(21845), img.Gray16At(1, 0).Y)
}

func TestImageFlatFrame(t *testing.T) {
	frame := &datablock.Frame{Data: []float64{7, 7}, Width: 2, Height: 1}
	img, err := Image(frame)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(0), img.Gray16At(1, 0).Y)
}

func TestImageSizeMismatch(t *testing.T) {
	_, err := Image(&datablock.Frame{Data: []float64{1, 2, 3}, Width: 2, Height: 2})
	require.Error(t, err)
	_, err = Image(&datablock.Frame{Data: nil, Width: 0, Height: 0})
	require.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	frame := &datablock.Frame{Data: []float64{0, 1, 2, 3}, Width: 2, Height: 2}
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, SavePNG(frame, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
}
