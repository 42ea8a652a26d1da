package piskel

// Matcher replaces pixels with their nearest palette color under the redmean
// perceptual metric. Each Matcher owns a cache keyed by exact source RGB that
// lives for the duration of one matching pass; the cache is purely a
// performance optimization and never changes the output.
type Matcher struct {
	cache map[uint32]Color
}

// NewMatcher creates a Matcher with an empty cache.
func NewMatcher() *Matcher {
	return &Matcher{cache: make(map[uint32]Color)}
}

// Match replaces, in place, the RGB of every pixel in buf whose alpha byte is
// nonzero with the nearest palette entry. Alpha is never touched and fully
// transparent pixels are left byte-for-byte unchanged. Returns ErrEmptyPalette
// without mutating buf when the palette has no colors.
func (m *Matcher) Match(buf Buffer, palette Palette) error {
	if len(palette) == 0 {
		return ErrEmptyPalette
	}

	clear(m.cache)
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		if buf.Pix[i+3] == 0 {
			continue
		}
		r, g, b := buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]
		key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
		c, ok := m.cache[key]
		if !ok {
			c = nearestColor(palette, r, g, b)
			m.cache[key] = c
		}
		buf.Pix[i] = c.R
		buf.Pix[i+1] = c.G
		buf.Pix[i+2] = c.B
	}
	return nil
}

// nearestColor scans the palette in load order and returns the first entry
// with minimal redmean distance. A distance of zero short-circuits the scan.
func nearestColor(palette Palette, r, g, b uint8) Color {
	best := palette[0]
	bestDist := redmean(palette[0], r, g, b)
	for _, c := range palette[1:] {
		if bestDist == 0 {
			break
		}
		if d := redmean(c, r, g, b); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// redmean computes the luma-weighted squared color difference. No square root
// is taken since only relative ordering matters.
func redmean(c Color, r, g, b uint8) int {
	rMean := (int(c.R) + int(r)) / 2
	dr := int(c.R) - int(r)
	dg := int(c.G) - int(g)
	db := int(c.B) - int(b)
	return (512+rMean)*dr*dr>>8 + 4*dg*dg + (767-rMean)*db*db>>8
}
