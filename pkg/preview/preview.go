// Package preview renders detector images as grayscale PNG files for quick
// visual inspection. Pixel values are linearly rescaled to the full 16-bit
// range of the output image.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"gonum.org/v1/gonum/floats"

	"crystio/pkg/datablock"
)

// Image converts a frame to a 16-bit grayscale image. A flat frame renders
// as black.
func Image(frame *datablock.Frame) (*image.Gray16, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("frame has invalid size %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Data) != frame.Width*frame.Height {
		return nil, fmt.Errorf("frame has %d pixels, size says %d", len(frame.Data), frame.Width*frame.Height)
	}

	lo := floats.Min(frame.Data)
	hi := floats.Max(frame.Data)
	scale := 0.0
	if hi > lo {
		scale = 65535.0 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			v := frame.Data[y*frame.Width+x]
			img.SetGray16(x, y, color.Gray16{Y: uint16((v - lo) * scale)})
		}
	}
	return img, nil
}

// SavePNG writes the frame to path as a PNG file.
func SavePNG(frame *datablock.Frame, path string) error {
	img, err := Image(frame)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
