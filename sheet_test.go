package piskel

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeChunkErrors(t *testing.T) {
	t.Parallel()

	if _, err := encodeChunk(nil); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("err = %v, want ErrNoFrames", err)
	}

	frames := []Buffer{NewBuffer(2, 2), NewBuffer(3, 2)}
	if _, err := encodeChunk(frames); !errors.Is(err, ErrFrameSizeMismatch) {
		t.Fatalf("err = %v, want ErrFrameSizeMismatch", err)
	}
}

func TestTransformCropUnion(t *testing.T) {
	t.Parallel()

	// Frame 0 content in (0,0)-(1,1), frame 1 in (1,1)-(2,2); the union
	// (0,0 3x3) applies to both so the animation stays aligned.
	f0 := NewBuffer(4, 4)
	fillPixel(f0, 0, 0, 255, 0, 0, 255)
	fillPixel(f0, 1, 1, 255, 0, 0, 255)
	f1 := NewBuffer(4, 4)
	fillPixel(f1, 1, 1, 0, 255, 0, 255)
	fillPixel(f1, 2, 2, 0, 255, 0, 255)

	chunk, err := encodeChunk([]Buffer{f0, f1})
	if err != nil {
		t.Fatalf("encodeChunk: %v", err)
	}
	c := &Container{
		Width: 4, Height: 4,
		Layers: []Layer{{Name: "a", Opacity: 1, FrameCount: 2, Chunks: []Chunk{chunk}}},
	}

	if err := c.Transform(TransformOptions{Crop: true}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if c.Width != 3 || c.Height != 3 {
		t.Fatalf("size %dx%d, want 3x3", c.Width, c.Height)
	}

	frames, err := c.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if got := pixelAt(frames[0], 0, 0); got != [4]byte{255, 0, 0, 255} {
		t.Fatalf("frame 0 (0,0) = %v", got)
	}
	if got := pixelAt(frames[1], 2, 2); got != [4]byte{0, 255, 0, 255} {
		t.Fatalf("frame 1 (2,2) = %v", got)
	}
}

func TestTransformCropAllTransparent(t *testing.T) {
	t.Parallel()

	chunk, err := encodeChunk([]Buffer{NewBuffer(4, 4)})
	if err != nil {
		t.Fatalf("encodeChunk: %v", err)
	}
	c := &Container{
		Width: 4, Height: 4,
		Layers: []Layer{{Opacity: 1, FrameCount: 1, Chunks: []Chunk{chunk}}},
	}

	if err := c.Transform(TransformOptions{Crop: true}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if c.Width != 4 || c.Height != 4 {
		t.Fatalf("all-transparent container was cropped to %dx%d", c.Width, c.Height)
	}
}

func TestTransformResize(t *testing.T) {
	t.Parallel()

	c := twoFrameContainer(t)
	if err := c.Transform(TransformOptions{Width: 8, Height: 8}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if c.Width != 8 || c.Height != 8 {
		t.Fatalf("size %dx%d, want 8x8", c.Width, c.Height)
	}

	frames, err := c.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	// Nearest neighbor doubles the red dot into a 2x2 block.
	if got := pixelAt(frames[0], 1, 1); got != [4]byte{255, 0, 0, 255} {
		t.Fatalf("frame 0 (1,1) = %v", got)
	}
	if got := pixelAt(frames[0], 2, 2); got[3] != 0 {
		t.Fatalf("frame 0 (2,2) = %v, want transparent", got)
	}
}

func TestTransformAspectAndScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opt   TransformOptions
		wantW int
		wantH int
	}{
		{name: "width-derives-height", opt: TransformOptions{Width: 8}, wantW: 8, wantH: 8},
		{name: "height-derives-width", opt: TransformOptions{Height: 2}, wantW: 2, wantH: 2},
		{name: "scale", opt: TransformOptions{Scale: 2.5}, wantW: 10, wantH: 10},
		{name: "explicit-beats-scale", opt: TransformOptions{Width: 6, Height: 6, Scale: 9}, wantW: 6, wantH: 6},
		{name: "noop", opt: TransformOptions{}, wantW: 4, wantH: 4},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := twoFrameContainer(t)
			if err := c.Transform(tc.opt); err != nil {
				t.Fatalf("Transform: %v", err)
			}
			if c.Width != tc.wantW || c.Height != tc.wantH {
				t.Fatalf("size %dx%d, want %dx%d", c.Width, c.Height, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestTransformInvalidScale(t *testing.T) {
	t.Parallel()

	c := twoFrameContainer(t)
	err := c.Transform(TransformOptions{Scale: 0.01})
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}
}

func TestFromBuffer(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(3, 2)
	fillPixel(buf, 1, 1, 5, 6, 7, 255)

	c, err := FromBuffer("dot", buf)
	if err != nil {
		t.Fatalf("FromBuffer: %v", err)
	}
	if c.Name != "dot" || c.Width != 3 || c.Height != 2 || c.FPS != DefaultFPS {
		t.Fatalf("unexpected container: %+v", c)
	}
	if c.FrameCount() != 1 {
		t.Fatalf("frame count %d", c.FrameCount())
	}

	frame, err := c.Frame(0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if !bytes.Equal(frame.Pix, buf.Pix) {
		t.Fatalf("frame pixels differ from source")
	}

	if _, err := FromBuffer("empty", Buffer{}); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}
}

func TestFrameOutOfRange(t *testing.T) {
	t.Parallel()

	c := twoFrameContainer(t)
	tests := []int{-1, 2, 100}
	for _, idx := range tests {
		if _, err := c.Frame(idx); !errors.Is(err, ErrFrameIndexOutOfRange) {
			t.Fatalf("Frame(%d) err = %v, want ErrFrameIndexOutOfRange", idx, err)
		}
	}
}

func TestFramesFlattensLayers(t *testing.T) {
	t.Parallel()

	bottom := NewBuffer(2, 1)
	fillPixel(bottom, 0, 0, 0, 0, 0, 255)
	fillPixel(bottom, 1, 0, 0, 0, 0, 255)
	top := NewBuffer(2, 1)
	fillPixel(top, 1, 0, 255, 255, 255, 255)

	bc, err := encodeChunk([]Buffer{bottom})
	if err != nil {
		t.Fatal(err)
	}
	tc, err := encodeChunk([]Buffer{top})
	if err != nil {
		t.Fatal(err)
	}

	c := &Container{
		Width: 2, Height: 1,
		Layers: []Layer{
			{Name: "bg", Opacity: 1, FrameCount: 1, Chunks: []Chunk{bc}},
			{Name: "fg", Opacity: 0.5, FrameCount: 1, Chunks: []Chunk{tc}},
		},
	}

	frames, err := c.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if got := pixelAt(frames[0], 0, 0); got != [4]byte{0, 0, 0, 255} {
		t.Fatalf("uncovered pixel = %v, want bottom layer", got)
	}
	got := pixelAt(frames[0], 1, 0)
	if got[0] < 120 || got[0] > 135 {
		t.Fatalf("covered pixel = %v, want ~mid grey from half-opacity white", got)
	}
}

func TestSpritesheet(t *testing.T) {
	t.Parallel()

	c := twoFrameContainer(t)

	sheet, err := c.Spritesheet(0, 1)
	if err != nil {
		t.Fatalf("Spritesheet: %v", err)
	}
	if sheet.Width != 8 || sheet.Height != 4 {
		t.Fatalf("one-row sheet %dx%d, want 8x4", sheet.Width, sheet.Height)
	}
	if got := pixelAt(sheet, 0, 0); got != [4]byte{255, 0, 0, 255} {
		t.Fatalf("frame 0 dot = %v", got)
	}
	if got := pixelAt(sheet, 7, 3); got != [4]byte{0, 0, 255, 255} {
		t.Fatalf("frame 1 dot = %v", got)
	}

	sheet, err = c.Spritesheet(1, 2)
	if err != nil {
		t.Fatalf("Spritesheet columns=1 factor=2: %v", err)
	}
	if sheet.Width != 8 || sheet.Height != 16 {
		t.Fatalf("stacked sheet %dx%d, want 8x16", sheet.Width, sheet.Height)
	}

	if _, err := c.Spritesheet(0, 0); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}

	empty := &Container{Width: 4, Height: 4}
	if _, err := empty.Spritesheet(0, 1); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("err = %v, want ErrNoFrames", err)
	}
}
