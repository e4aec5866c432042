package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/nfnt/resize"
)

// Filler writes one image's bytes into an input tensor.
type Filler interface {
	Fill(src []byte, dst *engine.Tensor) error
}

// RawFiller copies the leading bytes of the file into the tensor unchanged,
// each reinterpreted as a signed 8-bit value. It does no decoding; files must
// already hold preprocessed tensor data.
type RawFiller struct{}

func (RawFiller) Fill(src []byte, dst *engine.Tensor) error {
	data := dst.Int8s()
	if len(src) < len(data) {
		return fmt.Errorf("%w: have %d bytes, tensor needs %d", ErrSizeMismatch, len(src), len(data))
	}
	for i := range data {
		data[i] = int8(src[i])
	}
	return nil
}

// Layout is the dimension order of a 4-D image tensor.
type Layout string

const (
	// LayoutAuto picks NCHW when dim 1 is 1 or 3 and dim 3 is not, else NHWC.
	LayoutAuto Layout = ""
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

func isChannels(n int) bool { return n == 1 || n == 3 }

func (l Layout) resolve(shape []int) Layout {
	if l != LayoutAuto {
		return l
	}
	if isChannels(shape[1]) && !isChannels(shape[3]) {
		return LayoutNCHW
	}
	return LayoutNHWC
}

// DecodeFiller decodes a JPEG or PNG, resizes it to the tensor's spatial
// shape and quantizes each channel to int8. The tensor is [1, H, W, C]
// (interleaved) or [1, C, H, W] (planar) with 1 or 3 channels.
type DecodeFiller struct {
	Layout Layout
	// Scale and ZeroPoint map a [0,1] pixel to the quantized domain:
	// q = round(v/Scale) + ZeroPoint. Zero Scale means 1/255 with ZeroPoint -128.
	Scale     float32
	ZeroPoint int
}

func (f DecodeFiller) params() (float32, int) {
	if f.Scale == 0 {
		return 1.0 / 255.0, -128
	}
	return f.Scale, f.ZeroPoint
}

func (f DecodeFiller) Fill(src []byte, dst *engine.Tensor) error {
	if len(dst.Shape) != 4 {
		return fmt.Errorf("%w: tensor shape %v is not 4-D", ErrSizeMismatch, dst.Shape)
	}
	layout := f.Layout.resolve(dst.Shape)
	var height, width, channels int
	switch layout {
	case LayoutNHWC:
		height, width, channels = dst.Shape[1], dst.Shape[2], dst.Shape[3]
	case LayoutNCHW:
		channels, height, width = dst.Shape[1], dst.Shape[2], dst.Shape[3]
	default:
		return fmt.Errorf("%w: unknown layout %q", ErrSizeMismatch, layout)
	}
	if !isChannels(channels) {
		return fmt.Errorf("%w: %d channels not supported", ErrSizeMismatch, channels)
	}
	if height*width*channels != dst.ByteLen() {
		return fmt.Errorf("%w: tensor shape %v does not match %d bytes", ErrSizeMismatch, dst.Shape, dst.ByteLen())
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: decode: %w", ErrIO, err)
	}
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	// index of channel c at pixel p
	index := func(p, c int) int { return p*channels + c }
	if layout == LayoutNCHW {
		index = func(p, c int) int { return c*width*height + p }
	}

	scale, zero := f.params()
	data := dst.Int8s()
	bounds := resized.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			pixel := y*width + x
			if channels == 1 {
				// ITU-R 601 luma
				lum := (0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)) / 65535.0
				data[index(pixel, 0)] = quantize(lum, scale, zero)
				continue
			}
			data[index(pixel, 0)] = quantize(float32(r)/65535.0, scale, zero)
			data[index(pixel, 1)] = quantize(float32(g)/65535.0, scale, zero)
			data[index(pixel, 2)] = quantize(float32(b)/65535.0, scale, zero)
		}
	}
	return nil
}

func quantize(v, scale float32, zero int) int8 {
	q := int(math.Round(float64(v/scale))) + zero
	if q > math.MaxInt8 {
		return math.MaxInt8
	}
	if q < math.MinInt8 {
		return math.MinInt8
	}
	return int8(q)
}
