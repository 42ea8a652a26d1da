package piskel

import "errors"

var (
	// ErrUnsupportedFormat indicates an unrecognized palette or image source.
	ErrUnsupportedFormat = errors.New("unsupported palette format")
	// ErrParse indicates malformed bytes in a recognized format.
	ErrParse = errors.New("parse failed")
	// ErrEmptyPalette indicates matching against a palette with zero colors.
	ErrEmptyPalette = errors.New("empty palette")
	// ErrRectOutOfBounds indicates a rectangle outside the buffer extent.
	ErrRectOutOfBounds = errors.New("rectangle out of bounds")
	// ErrInvalidDimensions indicates non-positive target dimensions.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrFrameIndexOutOfRange indicates a frame selector outside [0, frameCount).
	ErrFrameIndexOutOfRange = errors.New("frame index out of range")
	// ErrNoFrames indicates a container without any frames.
	ErrNoFrames = errors.New("no frames")
	// ErrFrameSizeMismatch indicates frames with differing dimensions passed to encode.
	ErrFrameSizeMismatch = errors.New("frame size mismatch")
	// ErrLayoutIndex indicates a chunk layout referencing a frame outside the layer.
	ErrLayoutIndex = errors.New("layout frame index out of range")
	// ErrDecodeDocument indicates the piskel JSON envelope could not be parsed.
	ErrDecodeDocument = errors.New("decode piskel document failed")
	// ErrDecodeLayer indicates an embedded layer JSON string could not be parsed.
	ErrDecodeLayer = errors.New("decode layer failed")
	// ErrChunkImage indicates an embedded chunk PNG could not be decoded.
	ErrChunkImage = errors.New("decode chunk image failed")
	// ErrEncodeChunk indicates a chunk spritesheet could not be PNG-encoded.
	ErrEncodeChunk = errors.New("encode chunk image failed")
	// ErrDecodeImage indicates a raster image could not be decoded.
	ErrDecodeImage = errors.New("decode image failed")
	// ErrOpenFile indicates a file open failed.
	ErrOpenFile = errors.New("open file failed")
	// ErrCreateFile indicates a file creation failed.
	ErrCreateFile = errors.New("create file failed")
	// ErrPaletteExtract indicates palette extraction from an image failed.
	ErrPaletteExtract = errors.New("palette extraction failed")
)
