package piskel

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Color is an opaque byte triplet. Palettes carry no alpha.
type Color struct {
	R, G, B uint8
}

// Palette is an ordered list of unique colors in load order. A palette is
// immutable once loaded; an empty palette is a valid load result but must not
// be passed to Matcher.Match.
type Palette []Color

// PaletteFormat identifies one of the supported palette source kinds.
type PaletteFormat int

const (
	// PaletteUnknown marks an unrecognized source.
	PaletteUnknown PaletteFormat = iota
	// PaletteGPL is a GIMP palette text file.
	PaletteGPL
	// PaletteTXT is a hex or decimal color-per-line text file.
	PaletteTXT
	// PalettePALRiff is a RIFF-tagged binary .pal file.
	PalettePALRiff
	// PalettePALRaw is a headerless .pal file of RGB triplets.
	PalettePALRaw
	// PaletteImage is a raster image used as a color swatch source.
	PaletteImage
)

func (f PaletteFormat) String() string {
	switch f {
	case PaletteGPL:
		return "gpl"
	case PaletteTXT:
		return "txt"
	case PalettePALRiff:
		return "pal-riff"
	case PalettePALRaw:
		return "pal-raw"
	case PaletteImage:
		return "image"
	default:
		return "unknown"
	}
}

const riffMagic = "RIFF"

// DetectPaletteFormat classifies a palette source from its file name and the
// leading bytes of its content.
func DetectPaletteFormat(path string, header []byte) PaletteFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpl":
		return PaletteGPL
	case ".txt":
		return PaletteTXT
	case ".pal":
		if len(header) >= 4 && string(header[:4]) == riffMagic {
			return PalettePALRiff
		}
		return PalettePALRaw
	case ".png", ".gif", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return PaletteImage
	default:
		return PaletteUnknown
	}
}

// LoadPalette reads a palette file, classifying it by extension and signature.
func LoadPalette(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}

	format := DetectPaletteFormat(path, data)
	if format == PaletteUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	pal, err := ParsePalette(data, format)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return pal, nil
}

// ParsePalette parses raw palette bytes of a known format.
func ParsePalette(data []byte, format PaletteFormat) (Palette, error) {
	switch format {
	case PaletteGPL:
		return parseGPL(data), nil
	case PaletteTXT:
		return parseTXT(data), nil
	case PalettePALRiff:
		return parseRIFFPal(data)
	case PalettePALRaw:
		return parseRawPal(data), nil
	case PaletteImage:
		return parseImageSwatch(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// paletteBuilder accumulates colors, deduplicated by exact RGB, preserving
// first-seen order.
type paletteBuilder struct {
	colors Palette
	seen   map[Color]struct{}
}

func newPaletteBuilder() *paletteBuilder {
	return &paletteBuilder{seen: make(map[Color]struct{})}
}

func (pb *paletteBuilder) add(c Color) {
	if _, ok := pb.seen[c]; ok {
		return
	}
	pb.seen[c] = struct{}{}
	pb.colors = append(pb.colors, c)
}

func parseGPL(data []byte) Palette {
	pb := newPaletteBuilder()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "GIMP") ||
			strings.HasPrefix(line, "Name:") ||
			strings.HasPrefix(line, "Columns:") {
			continue
		}
		// First three whitespace-separated integers; trailing name is ignored.
		fields := strings.Fields(line)
		if c, ok := colorFromFields(fields); ok {
			pb.add(c)
		}
	}
	return pb.colors
}

func parseTXT(data []byte) Palette {
	pb := newPaletteBuilder()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if c, ok := colorFromHexToken(strings.Fields(line)[0]); ok {
			pb.add(c)
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if c, ok := colorFromFields(fields); ok {
			pb.add(c)
		}
	}
	return pb.colors
}

// colorFromHexToken parses a 6-hex-digit token with optional leading '#'.
func colorFromHexToken(token string) (Color, bool) {
	hex := strings.TrimPrefix(token, "#")
	if len(hex) != 6 {
		return Color{}, false
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Color{}, false
		}
	}
	col, err := colorful.Hex("#" + strings.ToLower(hex))
	if err != nil {
		return Color{}, false
	}
	r, g, b := col.RGB255()
	return Color{R: r, G: g, B: b}, true
}

func colorFromFields(fields []string) (Color, bool) {
	if len(fields) < 3 {
		return Color{}, false
	}
	var vals [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil || n < 0 || n > 255 {
			return Color{}, false
		}
		vals[i] = uint8(n)
	}
	return Color{R: vals[0], G: vals[1], B: vals[2]}, true
}

// parseRIFFPal reads a RIFF-tagged .pal: a little-endian 16-bit color count at
// byte offset 22, colors at offset 24, 4 bytes per entry (r,g,b,unused).
func parseRIFFPal(data []byte) (Palette, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("%w: RIFF palette truncated at %d bytes", ErrParse, len(data))
	}
	count := int(binary.LittleEndian.Uint16(data[22:24]))
	if len(data) < 24+4*count {
		return nil, fmt.Errorf("%w: RIFF palette declares %d colors, %d bytes available",
			ErrParse, count, len(data)-24)
	}

	pb := newPaletteBuilder()
	for i := 0; i < count; i++ {
		off := 24 + 4*i
		pb.add(Color{R: data[off], G: data[off+1], B: data[off+2]})
	}
	return pb.colors, nil
}

// parseRawPal reads a headerless .pal as a flat stream of RGB triplets.
// Trailing partial bytes are discarded.
func parseRawPal(data []byte) Palette {
	pb := newPaletteBuilder()
	for i := 0; i+2 < len(data); i += 3 {
		pb.add(Color{R: data[i], G: data[i+1], B: data[i+2]})
	}
	return pb.colors
}

// parseImageSwatch decodes a raster image and collects every pixel with
// alpha > 0 in row-major order, deduplicated by exact RGB.
func parseImageSwatch(data []byte) (Palette, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	pb := newPaletteBuilder()
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			pb.add(Color{R: c.R, G: c.G, B: c.B})
		}
	}
	return pb.colors, nil
}

// SortByBrightness orders colors in place from darkest to brightest using
// linear-RGB luma.
func SortByBrightness(p Palette) {
	slices.SortStableFunc(p, func(a, b Color) int {
		ya := linearLuma(a)
		yb := linearLuma(b)
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}

func linearLuma(c Color) float64 {
	r, g, b := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// SaveGPL writes the palette as a GIMP palette text file.
func SaveGPL(p Palette, name, path string) error {
	var buf bytes.Buffer
	buf.WriteString("GIMP Palette\n")
	fmt.Fprintf(&buf, "Name: %s\n", name)
	buf.WriteString("Columns: 8\n#\n")
	for i, c := range p {
		fmt.Fprintf(&buf, "%3d %3d %3d\tcolor-%d\n", c.R, c.G, c.B, i)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	return nil
}

// SaveSwatchPNG writes the palette as a horizontal strip of tileSize-square
// color tiles, loadable again as an image swatch source.
func SaveSwatchPNG(p Palette, tileSize int, path string) error {
	if len(p) == 0 {
		return ErrEmptyPalette
	}
	if tileSize <= 0 {
		tileSize = 16
	}

	img := image.NewNRGBA(image.Rect(0, 0, tileSize*len(p), tileSize))
	for i, c := range p {
		tile := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
		for y := 0; y < tileSize; y++ {
			for x := i * tileSize; x < (i+1)*tileSize; x++ {
				img.SetNRGBA(x, y, tile)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	defer func() { _ = f.Close() }()

	return png.Encode(f, img)
}
