// Command piskel-tools manipulates .piskel sprite containers: palette
// matching, uniform crop and resize, frame and spritesheet export, container
// creation from raster images, and palette generation.
package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timmoehring/piskel"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// errBatch marks a run where at least one input failed after the whole batch
// was attempted.
var errBatch = errors.New("some inputs failed")

var rootCmd = &cobra.Command{
	Use:           "piskel-tools",
	Short:         "Toolbox for .piskel sprite containers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(
		newMatchCmd(),
		newScaleCmd(),
		newFramesCmd(),
		newCreateCmd(),
		newPaletteCmd(),
		newInfoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errBatch) {
			logger.Error("fatal", "error", err)
		}
		os.Exit(1)
	}
}

// runBatch processes inputs one by one. A failing input is logged and skipped,
// never aborting the rest of the batch.
func runBatch(inputs []string, fn func(path string) error) error {
	succeeded, failed := 0, 0
	for _, path := range inputs {
		if err := fn(path); err != nil {
			logger.Error("failed", "file", path, "error", err)
			failed++
			continue
		}
		succeeded++
	}
	logger.Info("done", "succeeded", succeeded, "failed", failed)
	if failed > 0 {
		return errBatch
	}
	return nil
}

// outputPath places base's name under dir with ext, or next to the input when
// dir is empty.
func outputPath(input, dir, ext string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ext
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", piskel.ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", piskel.ErrDecodeImage, path, err)
	}
	return img, nil
}

func savePNG(buf piskel.Buffer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", piskel.ErrCreateFile, path, err)
	}
	defer func() { _ = f.Close() }()

	return png.Encode(f, buf.Image())
}

func newMatchCmd() *cobra.Command {
	var (
		palettePath string
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "match -p palette file...",
		Short: "Snap every pixel to its nearest palette color",
		Long: `Match rewrites sprite pixels to the nearest palette entry under the
redmean perceptual metric. Inputs may be .piskel containers or raster
images; each output keeps the input's format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			palette, err := piskel.LoadPalette(palettePath)
			if err != nil {
				return err
			}
			if len(palette) == 0 {
				return fmt.Errorf("%w: %q", piskel.ErrEmptyPalette, palettePath)
			}
			logger.Info("palette loaded", "file", palettePath, "colors", len(palette))

			matcher := piskel.NewMatcher()
			return runBatch(args, func(path string) error {
				if strings.EqualFold(filepath.Ext(path), ".piskel") {
					c, err := piskel.ReadFile(path)
					if err != nil {
						return err
					}
					if err := c.ApplyPalette(matcher, palette); err != nil {
						return err
					}
					return c.WriteFile(outputPath(path, outDir, ".piskel"))
				}

				img, err := loadImage(path)
				if err != nil {
					return err
				}
				buf := piskel.FromImage(img)
				if err := matcher.Match(buf, palette); err != nil {
					return err
				}
				return savePNG(buf, outputPath(path, outDir, ".png"))
			})
		},
	}

	cmd.Flags().StringVarP(&palettePath, "palette", "p", "", "palette file (gpl, txt, pal or image)")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default: next to input)")
	_ = cmd.MarkFlagRequired("palette")
	return cmd
}

func newScaleCmd() *cobra.Command {
	var (
		opt    piskel.TransformOptions
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "scale file.piskel...",
		Short: "Crop and resize every frame of a container uniformly",
		Long: `Scale applies one crop rectangle and one target size to every frame of
every layer, keeping the animation spatially aligned. Explicit width or
height wins over the scale factor; a single explicit dimension derives
the other preserving aspect ratio.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, func(path string) error {
				c, err := piskel.ReadFile(path)
				if err != nil {
					return err
				}
				if err := c.Transform(opt); err != nil {
					return err
				}
				logger.Info("transformed", "file", path, "width", c.Width, "height", c.Height)
				return c.WriteFile(outputPath(path, outDir, ".piskel"))
			})
		},
	}

	cmd.Flags().BoolVar(&opt.Crop, "crop", false, "trim to the union of all frames' content bounds")
	cmd.Flags().IntVar(&opt.Width, "width", 0, "target frame width in pixels")
	cmd.Flags().IntVar(&opt.Height, "height", 0, "target frame height in pixels")
	cmd.Flags().Float64Var(&opt.Scale, "scale", 0, "scale factor applied to current dimensions")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default: next to input)")
	return cmd
}

func newFramesCmd() *cobra.Command {
	var (
		outDir  string
		index   int
		columns int
		factor  int
		sheet   bool
	)

	cmd := &cobra.Command{
		Use:   "frames file.piskel...",
		Short: "Export flattened frames or a spritesheet as PNG",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, func(path string) error {
				c, err := piskel.ReadFile(path)
				if err != nil {
					return err
				}

				if sheet {
					buf, err := c.Spritesheet(columns, factor)
					if err != nil {
						return err
					}
					return savePNG(buf, outputPath(path, outDir, "-sheet.png"))
				}

				if index >= 0 {
					buf, err := c.Frame(index)
					if err != nil {
						return err
					}
					return savePNG(buf, outputPath(path, outDir, fmt.Sprintf("-%d.png", index)))
				}

				frames, err := c.Frames()
				if err != nil {
					return err
				}
				for i, buf := range frames {
					out := outputPath(path, outDir, fmt.Sprintf("-%d.png", i))
					if err := savePNG(buf, out); err != nil {
						return err
					}
				}
				logger.Info("exported", "file", path, "frames", len(frames))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default: next to input)")
	cmd.Flags().IntVar(&index, "index", -1, "export only this frame index")
	cmd.Flags().BoolVar(&sheet, "sheet", false, "export all frames as one spritesheet")
	cmd.Flags().IntVar(&columns, "columns", 0, "spritesheet column count (0: one row)")
	cmd.Flags().IntVar(&factor, "factor", 1, "integer upscale factor for spritesheet export")
	return cmd
}

func newCreateCmd() *cobra.Command {
	var (
		outDir string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "create image...",
		Short: "Wrap raster images into one-frame .piskel containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, func(path string) error {
				img, err := loadImage(path)
				if err != nil {
					return err
				}

				title := name
				if title == "" {
					title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				c, err := piskel.FromBuffer(title, piskel.FromImage(img))
				if err != nil {
					return err
				}
				return c.WriteFile(outputPath(path, outDir, ".piskel"))
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default: next to input)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "sprite name (default: input file name)")
	return cmd
}

func newPaletteCmd() *cobra.Command {
	var (
		outPath    string
		colors     int
		methodName string
		sorted     bool
		tileSize   int
	)

	cmd := &cobra.Command{
		Use:   "palette image",
		Short: "Generate a palette from an image",
		Long: `Palette derives representative colors from a raster image or from the
flattened frames of a .piskel container. The dominant method scores
candidates by visual weight; kmeans clusters opaque pixels in RGB space.
Output format follows the -o extension: .gpl writes a GIMP palette,
.png a swatch strip.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var method piskel.ExtractMethod
			switch methodName {
			case "dominant":
				method = piskel.ExtractDominant
			case "kmeans":
				method = piskel.ExtractKMeans
			default:
				return fmt.Errorf("unknown method %q (want dominant or kmeans)", methodName)
			}

			input := args[0]
			var img image.Image
			if strings.EqualFold(filepath.Ext(input), ".piskel") {
				c, err := piskel.ReadFile(input)
				if err != nil {
					return err
				}
				buf, err := c.Spritesheet(0, 1)
				if err != nil {
					return err
				}
				img = buf.Image()
			} else {
				var err error
				img, err = loadImage(input)
				if err != nil {
					return err
				}
			}

			palette, err := piskel.ExtractFromImage(img, colors, method)
			if err != nil {
				return err
			}
			if sorted {
				piskel.SortByBrightness(palette)
			}
			logger.Info("palette extracted", "file", input, "method", method.String(), "colors", len(palette))

			if outPath == "" {
				outPath = outputPath(input, "", ".gpl")
			}
			if strings.EqualFold(filepath.Ext(outPath), ".png") {
				return piskel.SaveSwatchPNG(palette, tileSize, outPath)
			}
			name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			return piskel.SaveGPL(palette, name, outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file, .gpl or .png (default: input name + .gpl)")
	cmd.Flags().IntVarP(&colors, "colors", "c", 16, "number of colors to extract")
	cmd.Flags().StringVarP(&methodName, "method", "m", "dominant", "extraction method: dominant or kmeans")
	cmd.Flags().BoolVar(&sorted, "sort", false, "sort extracted colors darkest to brightest")
	cmd.Flags().IntVar(&tileSize, "tile", 16, "swatch tile size for .png output")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info file.piskel...",
		Short: "Print container structure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, func(path string) error {
				c, err := piskel.ReadFile(path)
				if err != nil {
					return err
				}

				fmt.Printf("%s\n", path)
				fmt.Printf("  name:    %s\n", c.Name)
				if c.Description != "" {
					fmt.Printf("  desc:    %s\n", c.Description)
				}
				fmt.Printf("  model:   %d\n", c.ModelVersion)
				fmt.Printf("  size:    %dx%d\n", c.Width, c.Height)
				fmt.Printf("  fps:     %d\n", c.FPS)
				fmt.Printf("  frames:  %d\n", c.FrameCount())
				fmt.Printf("  layers:  %d\n", len(c.Layers))
				for i := range c.Layers {
					l := &c.Layers[i]
					fmt.Printf("    [%d] %q opacity=%g frames=%d chunks=%d\n",
						i, l.Name, l.Opacity, l.FrameCount, len(l.Chunks))
				}
				return nil
			})
		},
	}
}
