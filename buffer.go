package piskel

import (
	"fmt"
	"image"
)

// Rect is a rectangle within an enclosing buffer, in pixels.
type Rect struct {
	X, Y, W, H int
}

// Buffer is a raw RGBA pixel buffer with straight (non-premultiplied) alpha.
// Pix holds 4*Width*Height bytes, row-major, RGBA interleaved.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NewBuffer allocates a fully transparent buffer.
func NewBuffer(width, height int) Buffer {
	return Buffer{Width: width, Height: height, Pix: make([]byte, 4*width*height)}
}

// Clone returns a deep copy of the buffer.
func (b Buffer) Clone() Buffer {
	out := Buffer{Width: b.Width, Height: b.Height, Pix: make([]byte, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// Empty reports whether the buffer holds no pixels.
func (b Buffer) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b Buffer) offset(x, y int) int {
	return 4 * (y*b.Width + x)
}

// ContentBounds returns the tight rectangle enclosing every pixel with
// alpha > 0 and true, or the full buffer extent and false when every pixel
// is fully transparent.
func ContentBounds(b Buffer) (Rect, bool) {
	minX, minY := b.Width, b.Height
	maxX, maxY := -1, -1
	for y := 0; y < b.Height; y++ {
		row := 4 * y * b.Width
		for x := 0; x < b.Width; x++ {
			if b.Pix[row+4*x+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return Rect{X: 0, Y: 0, W: b.Width, H: b.Height}, false
	}
	return Rect{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}, true
}

// Crop returns a new rect.W x rect.H buffer holding the sub-pixels of b.
// The rectangle must lie within the buffer extent.
func Crop(b Buffer, rect Rect) (Buffer, error) {
	if rect.W <= 0 || rect.H <= 0 {
		return Buffer{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rect.W, rect.H)
	}
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.W > b.Width || rect.Y+rect.H > b.Height {
		return Buffer{}, fmt.Errorf("%w: rect (%d,%d %dx%d) in %dx%d buffer",
			ErrRectOutOfBounds, rect.X, rect.Y, rect.W, rect.H, b.Width, b.Height)
	}

	out := NewBuffer(rect.W, rect.H)
	rowLen := 4 * rect.W
	for y := 0; y < rect.H; y++ {
		src := b.offset(rect.X, rect.Y+y)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], b.Pix[src:src+rowLen])
	}
	return out, nil
}

// Resize returns a new width x height buffer sampled from b with nearest
// neighbor: destination (x,y) reads source (x*srcW/width, y*srcH/height).
// Hard pixel edges are preserved.
func Resize(b Buffer, width, height int) (Buffer, error) {
	if width < 1 || height < 1 {
		return Buffer{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	out := NewBuffer(width, height)
	for y := 0; y < height; y++ {
		sy := y * b.Height / height
		for x := 0; x < width; x++ {
			sx := x * b.Width / width
			src := b.offset(sx, sy)
			dst := out.offset(x, y)
			copy(out.Pix[dst:dst+4], b.Pix[src:src+4])
		}
	}
	return out, nil
}

// Composite returns a copy of dst with src written verbatim at the given
// offset (replace, not blend). Pixels falling outside dst are discarded.
func Composite(dst Buffer, offsetX, offsetY int, src Buffer) Buffer {
	out := dst.Clone()
	for y := 0; y < src.Height; y++ {
		dy := offsetY + y
		if dy < 0 || dy >= out.Height {
			continue
		}
		for x := 0; x < src.Width; x++ {
			dx := offsetX + x
			if dx < 0 || dx >= out.Width {
				continue
			}
			d := out.offset(dx, dy)
			s := src.offset(x, y)
			copy(out.Pix[d:d+4], src.Pix[s:s+4])
		}
	}
	return out
}

// blendOver composites src over dst in place using straight-alpha source-over,
// with the source alpha scaled by opacity in [0,1]. Dimensions must match.
func blendOver(dst, src Buffer, opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	for i := 0; i+3 < len(src.Pix) && i+3 < len(dst.Pix); i += 4 {
		srcA := uint32(float64(src.Pix[i+3]) * opacity)
		if srcA == 0 {
			continue
		}
		dstA := uint32(dst.Pix[i+3])
		if srcA == 255 || dstA == 0 {
			dst.Pix[i] = src.Pix[i]
			dst.Pix[i+1] = src.Pix[i+1]
			dst.Pix[i+2] = src.Pix[i+2]
			dst.Pix[i+3] = byte(srcA)
			continue
		}

		dstFactorA := (dstA * (256 - srcA)) >> 8
		blendA := srcA + dstFactorA
		if blendA == 0 {
			continue
		}
		scale := (uint32(1) << 24) / blendA
		for c := 0; c < 3; c++ {
			v := (uint32(src.Pix[i+c])*srcA + uint32(dst.Pix[i+c])*dstFactorA) * scale >> 24
			if v > 255 {
				v = 255
			}
			dst.Pix[i+c] = byte(v)
		}
		dst.Pix[i+3] = byte(blendA)
	}
}

// FromImage converts any image into a straight-alpha RGBA buffer.
func FromImage(img image.Image) Buffer {
	bounds := img.Bounds()
	out := NewBuffer(bounds.Dx(), bounds.Dy())

	if nrgba, ok := img.(*image.NRGBA); ok {
		rowLen := 4 * out.Width
		for y := 0; y < out.Height; y++ {
			src := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(out.Pix[y*rowLen:(y+1)*rowLen], nrgba.Pix[src:src+rowLen])
		}
		return out
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, out.Width, out.Height))
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			nrgba.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	copy(out.Pix, nrgba.Pix)
	return out
}

// Image copies the buffer's pixels into a standard image for the PNG codec.
func (b Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}
