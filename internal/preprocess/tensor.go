package preprocess

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/leaf-api/internal/model"
)

// Tensor resizes img to the model's square input and lays the pixels out as
// a batch of one, RGB, multiplied by meta.Scale.
func Tensor(img image.Image, meta model.Metadata) ([]float32, error) {
	if meta.ImageSize <= 0 {
		return nil, fmt.Errorf("invalid image size %d", meta.ImageSize)
	}

	size := uint(meta.ImageSize)
	resized := img
	if b := img.Bounds(); b.Dx() != meta.ImageSize || b.Dy() != meta.ImageSize {
		resized = resize.Resize(size, size, img, resize.Lanczos3)
	}

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	// RGBA is 16-bit; >>8 gives the 0-255 value Keras and PIL see.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rv := float32(r>>8) * meta.Scale
			gv := float32(g>>8) * meta.Scale
			bv := float32(b>>8) * meta.Scale

			pixel := y*width + x
			switch meta.Layout {
			case model.LayoutNCHW:
				data[pixel] = rv
				data[plane+pixel] = gv
				data[2*plane+pixel] = bv
			case model.LayoutNHWC:
				data[3*pixel] = rv
				data[3*pixel+1] = gv
				data[3*pixel+2] = bv
			default:
				return nil, fmt.Errorf("unknown layout %q", meta.Layout)
			}
		}
	}

	if want := meta.InputSize(); want != 0 && want != len(data) {
		return nil, fmt.Errorf("expected %d values, produced %d", want, len(data))
	}
	return data, nil
}
