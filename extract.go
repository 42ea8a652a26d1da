package piskel

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// ExtractMethod selects the palette generation strategy.
type ExtractMethod int

const (
	// ExtractDominant scores candidate colors by visual dominance.
	ExtractDominant ExtractMethod = iota
	// ExtractKMeans clusters opaque pixels in RGB space.
	ExtractKMeans
)

func (m ExtractMethod) String() string {
	if m == ExtractKMeans {
		return "kmeans"
	}
	return "dominant"
}

// ExtractFromImage derives a palette of up to k colors from a raster image.
// The k-means method falls back to dominant-color scoring when clustering
// yields nothing (tiny or fully transparent inputs).
func ExtractFromImage(img image.Image, k int, method ExtractMethod) (Palette, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: requested %d colors", ErrPaletteExtract, k)
	}

	var picked []colorful.Color
	if method == ExtractKMeans {
		picked = extractKMeans(img, k)
	}
	if len(picked) == 0 {
		picked = extractDominant(img, k)
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: no opaque pixels", ErrPaletteExtract)
	}

	pb := newPaletteBuilder()
	for _, col := range picked {
		r, g, b := col.Clamped().RGB255()
		pb.add(Color{R: r, G: g, B: b})
	}
	return pb.colors, nil
}

type weightedColor struct {
	col    colorful.Color
	weight float64
}

func extractDominant(img image.Image, k int) []colorful.Color {
	nCandidates := max(24, k*8)
	candidates := dominantcolor.FindWeight(img, nCandidates)
	if len(candidates) == 0 {
		return nil
	}

	weighted := make([]weightedColor, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		w := c.Weight
		if w <= 0 {
			w = 1e-6
		}
		weighted = append(weighted, weightedColor{col: col.Clamped(), weight: w})
	}
	return selectDiverse(weighted, k)
}

func extractKMeans(img image.Image, k int) []colorful.Color {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	// Subsample to keep clustering tractable on large images.
	const maxSamples = 12000
	step := 1
	if width*height > maxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(maxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 65535.0,
				float64(g16) / 65535.0,
				float64(b16) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil
	}

	workK := min(max(k*4, k+2), len(dataset))
	km := kmeans.New()
	cc, err := km.Partition(dataset, workK)
	if err != nil || len(cc) == 0 {
		return nil
	}

	// Populous clusters first so dominant tones survive the diverse pick.
	slices.SortFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	weighted := make([]weightedColor, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		w := float64(len(c.Observations))
		if w <= 0 {
			w = 1e-6
		}
		weighted = append(weighted, weightedColor{col: col, weight: w})
	}
	return selectDiverse(weighted, k)
}

// selectDiverse greedily picks k candidates, scoring each by its Lab distance
// to the already-picked set weighted by candidate strength. The strongest
// candidate seeds the selection.
func selectDiverse(cands []weightedColor, k int) []colorful.Color {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	if k > len(cands) {
		k = len(cands)
	}

	type item struct {
		col colorful.Color
		lab [3]float64
		w   float64
	}
	items := make([]item, 0, len(cands))
	maxW := 0.0
	for _, c := range cands {
		l, a, b := c.col.Lab()
		if c.weight > maxW {
			maxW = c.weight
		}
		items = append(items, item{col: c.col, lab: [3]float64{l, a, b}, w: c.weight})
	}
	if maxW <= 0 {
		maxW = 1.0
	}

	selected := make([]bool, len(items))
	order := make([]int, 0, k)

	seed := 0
	for i := 1; i < len(items); i++ {
		if items[i].w > items[seed].w {
			seed = i
		}
	}
	order = append(order, seed)
	selected[seed] = true

	for len(order) < k {
		bestIdx := -1
		bestScore := -1.0
		for i := range items {
			if selected[i] {
				continue
			}
			minD2 := math.MaxFloat64
			for _, s := range order {
				d0 := items[i].lab[0] - items[s].lab[0]
				d1 := items[i].lab[1] - items[s].lab[1]
				d2 := items[i].lab[2] - items[s].lab[2]
				if d := d0*d0 + d1*d1 + d2*d2; d < minD2 {
					minD2 = d
				}
			}
			normW := items[i].w / maxW
			score := math.Sqrt(minD2) * (0.55 + 0.45*math.Sqrt(normW))
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected[bestIdx] = true
		order = append(order, bestIdx)
	}

	out := make([]colorful.Color, 0, len(order))
	for _, idx := range order {
		out = append(out, items[idx].col)
	}
	return out
}
