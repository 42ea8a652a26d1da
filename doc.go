/*
Package piskel reads, transforms and writes Piskel sprite containers and
applies palette-constrained color reduction to their pixel data.

A .piskel document is a JSON envelope holding layers; each layer stores its
animation frames as one or more spritesheet chunks (PNG tiles embedded as
base64 data URIs) plus a layout table mapping tile slots to logical frame
indices. The package decomposes chunks into per-frame RGBA buffers, applies
geometry transforms (crop-to-content, nearest-neighbor resize) uniformly
across every frame so animations stay aligned, and re-assembles the chunks.

Palettes load from GPL text, RIFF or raw .pal binaries, hex/decimal text
files, or any raster image used as a color swatch. Nearest-color matching
uses the redmean perceptual metric with a pass-scoped cache.
*/
package piskel
