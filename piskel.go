package piskel

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"
)

const (
	// ModelVersion is the piskel document version this package writes.
	ModelVersion = 2
	// DefaultFPS is used for containers built from a single image.
	DefaultFPS = 12

	pngDataPrefix = "data:image/png;base64,"
)

// Container is the in-memory form of a .piskel document: an ordered list of
// layers sharing one frame size.
type Container struct {
	ModelVersion int
	Name         string
	Description  string
	FPS          int
	Width        int
	Height       int
	Layers       []Layer

	// HiddenFrames is carried through verbatim from the source document.
	HiddenFrames json.RawMessage
}

// Layer is one drawing plane of the sprite: an ordered sequence of chunks
// sharing one frame count.
type Layer struct {
	Name       string
	Opacity    float64
	FrameCount int
	Chunks     []Chunk
}

// Chunk is a stored spritesheet plus a layout table. Layout[slot] lists the
// logical frame indices displayed by tile slot, so several frames may share
// one physical tile. A chunk without image payload has an empty Sheet and
// contributes zero frames.
type Chunk struct {
	Layout [][]int
	Sheet  Buffer
}

type documentJSON struct {
	ModelVersion int        `json:"modelVersion"`
	Piskel       spriteJSON `json:"piskel"`
}

type spriteJSON struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	FPS          int             `json:"fps"`
	Height       int             `json:"height"`
	Width        int             `json:"width"`
	Layers       []string        `json:"layers"`
	HiddenFrames json.RawMessage `json:"hiddenFrames,omitempty"`
}

type layerJSON struct {
	Name       string      `json:"name"`
	Opacity    float64     `json:"opacity"`
	FrameCount int         `json:"frameCount"`
	Chunks     []chunkJSON `json:"chunks"`
}

type chunkJSON struct {
	Layout    [][]int `json:"layout"`
	Base64PNG string  `json:"base64PNG"`
}

// ReadFile reads and decodes a .piskel document.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	c, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return c, nil
}

// Decode parses a .piskel document from r.
func Decode(r io.Reader) (*Container, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeDocument, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses a .piskel document from raw bytes, inflating every
// embedded chunk PNG into an RGBA buffer.
func DecodeBytes(data []byte) (*Container, error) {
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeDocument, err)
	}

	c := &Container{
		ModelVersion: doc.ModelVersion,
		Name:         doc.Piskel.Name,
		Description:  doc.Piskel.Description,
		FPS:          doc.Piskel.FPS,
		Width:        doc.Piskel.Width,
		Height:       doc.Piskel.Height,
		HiddenFrames: doc.Piskel.HiddenFrames,
	}

	for i, raw := range doc.Piskel.Layers {
		var lj layerJSON
		if err := json.Unmarshal([]byte(raw), &lj); err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrDecodeLayer, i, err)
		}

		layer := Layer{
			Name:       lj.Name,
			Opacity:    lj.Opacity,
			FrameCount: lj.FrameCount,
		}
		for j, cj := range lj.Chunks {
			chunk, err := decodeChunkJSON(cj)
			if err != nil {
				return nil, fmt.Errorf("layer %d chunk %d: %w", i, j, err)
			}
			layer.Chunks = append(layer.Chunks, chunk)
		}
		c.Layers = append(c.Layers, layer)
	}

	return c, nil
}

func decodeChunkJSON(cj chunkJSON) (Chunk, error) {
	chunk := Chunk{Layout: cj.Layout}
	if cj.Base64PNG == "" {
		return chunk, nil
	}

	payload := cj.Base64PNG
	if i := strings.Index(payload, ","); i >= 0 {
		payload = payload[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: %v", ErrChunkImage, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: %v", ErrChunkImage, err)
	}

	chunk.Sheet = FromImage(img)
	return chunk, nil
}

// WriteFile encodes the container and writes it to path. A partially written
// file is not cleaned up on error.
func (c *Container) WriteFile(path string) error {
	data, err := c.EncodeBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	return nil
}

// Encode writes the container as a .piskel document to w.
func (c *Container) Encode(w io.Writer) error {
	data, err := c.EncodeBytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeBytes serializes the container, embedding every chunk spritesheet as
// a base64 PNG data URI.
func (c *Container) EncodeBytes() ([]byte, error) {
	doc := documentJSON{
		ModelVersion: c.ModelVersion,
		Piskel: spriteJSON{
			Name:         c.Name,
			Description:  c.Description,
			FPS:          c.FPS,
			Height:       c.Height,
			Width:        c.Width,
			HiddenFrames: c.HiddenFrames,
		},
	}
	if doc.ModelVersion == 0 {
		doc.ModelVersion = ModelVersion
	}
	if doc.Piskel.HiddenFrames == nil {
		doc.Piskel.HiddenFrames = json.RawMessage("[]")
	}

	for i := range c.Layers {
		layer := &c.Layers[i]
		lj := layerJSON{
			Name:       layer.Name,
			Opacity:    layer.Opacity,
			FrameCount: layer.FrameCount,
			Chunks:     make([]chunkJSON, 0, len(layer.Chunks)),
		}
		for j := range layer.Chunks {
			cj, err := encodeChunkJSON(&layer.Chunks[j])
			if err != nil {
				return nil, fmt.Errorf("layer %d chunk %d: %w", i, j, err)
			}
			lj.Chunks = append(lj.Chunks, cj)
		}

		raw, err := json.Marshal(lj)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %v", i, err)
		}
		doc.Piskel.Layers = append(doc.Piskel.Layers, string(raw))
	}
	if doc.Piskel.Layers == nil {
		doc.Piskel.Layers = []string{}
	}

	return json.Marshal(doc)
}

func encodeChunkJSON(chunk *Chunk) (chunkJSON, error) {
	cj := chunkJSON{Layout: chunk.Layout}
	if cj.Layout == nil {
		cj.Layout = [][]int{}
	}
	if chunk.Sheet.Empty() {
		return cj, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, chunk.Sheet.Image()); err != nil {
		return chunkJSON{}, fmt.Errorf("%w: %v", ErrEncodeChunk, err)
	}
	cj.Base64PNG = pngDataPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
	return cj, nil
}

// ApplyPalette matches every chunk spritesheet in place against the palette.
// Chunk layouts and geometry are untouched, so de-duplicated storage survives
// a matching pass.
func (c *Container) ApplyPalette(m *Matcher, palette Palette) error {
	for li := range c.Layers {
		for ci := range c.Layers[li].Chunks {
			chunk := &c.Layers[li].Chunks[ci]
			if chunk.Sheet.Empty() {
				continue
			}
			if err := m.Match(chunk.Sheet, palette); err != nil {
				return fmt.Errorf("layer %d chunk %d: %w", li, ci, err)
			}
		}
	}
	return nil
}
