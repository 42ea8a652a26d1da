package piskel

import (
	"fmt"
	"math"
)

// Frames decodes the layer's chunks into per-frame buffers of the given frame
// size. Frames not covered by any chunk stay fully transparent; a chunk
// without image payload contributes zero frames.
func (l *Layer) Frames(frameWidth, frameHeight int) ([]Buffer, error) {
	if frameWidth < 1 || frameHeight < 1 {
		return nil, fmt.Errorf("%w: frame %dx%d", ErrInvalidDimensions, frameWidth, frameHeight)
	}

	n := l.FrameCount
	if n < 0 {
		n = 0
	}
	frames := make([]Buffer, n)
	for i := range frames {
		frames[i] = NewBuffer(frameWidth, frameHeight)
	}

	for ci := range l.Chunks {
		chunk := &l.Chunks[ci]
		if chunk.Sheet.Empty() {
			continue
		}
		tilesPerRow := chunk.Sheet.Width / frameWidth
		if tilesPerRow < 1 {
			tilesPerRow = 1
		}

		for slot, frameIndices := range chunk.Layout {
			tile, err := Crop(chunk.Sheet, Rect{
				X: (slot % tilesPerRow) * frameWidth,
				Y: (slot / tilesPerRow) * frameHeight,
				W: frameWidth,
				H: frameHeight,
			})
			if err != nil {
				return nil, fmt.Errorf("chunk %d slot %d: %w", ci, slot, err)
			}
			for _, fi := range frameIndices {
				if fi < 0 || fi >= n {
					return nil, fmt.Errorf("%w: chunk %d slot %d names frame %d of %d",
						ErrLayoutIndex, ci, slot, fi, n)
				}
				// Each frame gets its own copy so transforms never alias a
				// shared tile.
				frames[fi] = tile.Clone()
			}
		}
	}

	return frames, nil
}

// encodeChunk tiles the frames row-major into one spritesheet chunk with an
// identity layout. De-duplication from the source is intentionally not
// preserved. All frames must share identical dimensions.
func encodeChunk(frames []Buffer) (Chunk, error) {
	if len(frames) == 0 {
		return Chunk{}, ErrNoFrames
	}
	fw, fh := frames[0].Width, frames[0].Height
	for i := range frames {
		if frames[i].Width != fw || frames[i].Height != fh {
			return Chunk{}, fmt.Errorf("%w: frame %d is %dx%d, want %dx%d",
				ErrFrameSizeMismatch, i, frames[i].Width, frames[i].Height, fw, fh)
		}
	}

	sheet := NewBuffer(fw*len(frames), fh)
	layout := make([][]int, len(frames))
	for i := range frames {
		sheet = Composite(sheet, i*fw, 0, frames[i])
		layout[i] = []int{i}
	}
	return Chunk{Layout: layout, Sheet: sheet}, nil
}

// TransformOptions describe the uniform multi-frame transform. Explicit Width
// and Height override Scale; Scale multiplies the (possibly cropped) current
// dimensions; with neither set, dimensions are left unchanged.
type TransformOptions struct {
	// Crop trims every frame to the union of all frames' content bounds.
	Crop bool
	// Width and Height request explicit target dimensions. When only one is
	// set, the other is derived preserving aspect ratio.
	Width  int
	Height int
	// Scale multiplies the current dimensions, rounded to nearest integer.
	Scale float64
}

// Transform applies crop and resize identically to every frame of every layer
// so animation frames stay spatially aligned, then re-encodes each layer into
// a single identity-layout chunk and updates the container dimensions.
func (c *Container) Transform(opt TransformOptions) error {
	layerFrames := make([][]Buffer, len(c.Layers))
	for i := range c.Layers {
		frames, err := c.Layers[i].Frames(c.Width, c.Height)
		if err != nil {
			return fmt.Errorf("layer %q: %w", c.Layers[i].Name, err)
		}
		layerFrames[i] = frames
	}

	curW, curH := c.Width, c.Height

	// One global content rectangle: the union over every frame of every
	// layer. Fully transparent frames contribute nothing; if all frames are
	// transparent there is no rectangle to union and cropping is skipped.
	var cropRect *Rect
	if opt.Crop {
		var union Rect
		found := false
		for _, frames := range layerFrames {
			for _, f := range frames {
				r, ok := ContentBounds(f)
				if !ok {
					continue
				}
				if !found {
					union = r
					found = true
				} else {
					union = unionRect(union, r)
				}
			}
		}
		if found {
			cropRect = &union
			curW, curH = union.W, union.H
		}
	}

	targetW, targetH, err := resolveTarget(curW, curH, opt)
	if err != nil {
		return err
	}

	for li := range c.Layers {
		frames := layerFrames[li]
		for fi := range frames {
			f := frames[fi]
			if cropRect != nil {
				f, err = Crop(f, *cropRect)
				if err != nil {
					return fmt.Errorf("layer %d frame %d: %w", li, fi, err)
				}
			}
			if f.Width != targetW || f.Height != targetH {
				f, err = Resize(f, targetW, targetH)
				if err != nil {
					return fmt.Errorf("layer %d frame %d: %w", li, fi, err)
				}
			}
			frames[fi] = f
		}

		if len(frames) == 0 {
			c.Layers[li].Chunks = nil
			continue
		}
		chunk, err := encodeChunk(frames)
		if err != nil {
			return fmt.Errorf("layer %d: %w", li, err)
		}
		c.Layers[li].Chunks = []Chunk{chunk}
		c.Layers[li].FrameCount = len(frames)
	}

	c.Width, c.Height = targetW, targetH
	return nil
}

// resolveTarget picks the final frame dimensions: explicit request first,
// then scale factor, otherwise unchanged.
func resolveTarget(curW, curH int, opt TransformOptions) (int, int, error) {
	switch {
	case opt.Width > 0 || opt.Height > 0:
		w, h := opt.Width, opt.Height
		if w == 0 {
			w = roundDim(float64(curW) * float64(h) / float64(curH))
		}
		if h == 0 {
			h = roundDim(float64(curH) * float64(w) / float64(curW))
		}
		if w < 1 || h < 1 {
			return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
		}
		return w, h, nil
	case opt.Scale > 0:
		w := int(math.Round(float64(curW) * opt.Scale))
		h := int(math.Round(float64(curH) * opt.Scale))
		if w < 1 || h < 1 {
			return 0, 0, fmt.Errorf("%w: scale %g yields %dx%d", ErrInvalidDimensions, opt.Scale, w, h)
		}
		return w, h, nil
	default:
		return curW, curH, nil
	}
}

func roundDim(v float64) int {
	return int(math.Round(v))
}

func unionRect(a, b Rect) Rect {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	maxX := max(a.X+a.W, b.X+b.W)
	maxY := max(a.Y+a.H, b.Y+b.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// FromBuffer builds a one-frame, one-layer container around a single buffer.
func FromBuffer(name string, buf Buffer) (*Container, error) {
	if buf.Empty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, buf.Width, buf.Height)
	}
	chunk, err := encodeChunk([]Buffer{buf})
	if err != nil {
		return nil, err
	}

	return &Container{
		ModelVersion: ModelVersion,
		Name:         name,
		FPS:          DefaultFPS,
		Width:        buf.Width,
		Height:       buf.Height,
		Layers: []Layer{{
			Name:       "Layer 1",
			Opacity:    1,
			FrameCount: 1,
			Chunks:     []Chunk{chunk},
		}},
	}, nil
}

// FrameCount returns the number of logical frames, the maximum over all
// layers.
func (c *Container) FrameCount() int {
	n := 0
	for i := range c.Layers {
		if c.Layers[i].FrameCount > n {
			n = c.Layers[i].FrameCount
		}
	}
	return n
}

// Frame extracts one displayable frame by index, flattening layers bottom to
// top with straight-alpha source-over weighted by layer opacity.
func (c *Container) Frame(index int) (Buffer, error) {
	n := c.FrameCount()
	if index < 0 || index >= n {
		return Buffer{}, fmt.Errorf("%w: %d of %d", ErrFrameIndexOutOfRange, index, n)
	}

	frames, err := c.Frames()
	if err != nil {
		return Buffer{}, err
	}
	return frames[index], nil
}

// Frames flattens every logical frame of the container.
func (c *Container) Frames() ([]Buffer, error) {
	n := c.FrameCount()
	out := make([]Buffer, n)
	for i := range out {
		out[i] = NewBuffer(c.Width, c.Height)
	}

	for li := range c.Layers {
		layer := &c.Layers[li]
		if layer.FrameCount == 0 {
			continue
		}
		frames, err := layer.Frames(c.Width, c.Height)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
		}
		for fi := range frames {
			blendOver(out[fi], frames[fi], layer.Opacity)
		}
	}
	return out, nil
}

// Spritesheet assembles all flattened frames into one row-major sheet with
// the given column count (columns <= 0 puts all frames in one row). Each
// frame is first scaled by the integer factor using the nearest-neighbor
// rule of Resize.
func (c *Container) Spritesheet(columns, factor int) (Buffer, error) {
	if factor < 1 {
		return Buffer{}, fmt.Errorf("%w: scale factor %d", ErrInvalidDimensions, factor)
	}

	frames, err := c.Frames()
	if err != nil {
		return Buffer{}, err
	}
	if len(frames) == 0 {
		return Buffer{}, ErrNoFrames
	}
	if columns <= 0 || columns > len(frames) {
		columns = len(frames)
	}
	rows := (len(frames) + columns - 1) / columns

	fw, fh := c.Width*factor, c.Height*factor
	sheet := NewBuffer(fw*columns, fh*rows)
	for i, frame := range frames {
		if factor > 1 {
			frame, err = Resize(frame, fw, fh)
			if err != nil {
				return Buffer{}, fmt.Errorf("frame %d: %w", i, err)
			}
		}
		sheet = Composite(sheet, (i%columns)*fw, (i/columns)*fh, frame)
	}
	return sheet, nil
}
