package piskel

import (
	"bytes"
	"errors"
	"testing"
)

func TestMatchNearest(t *testing.T) {
	t.Parallel()

	palette := Palette{{R: 255}, {G: 255}, {B: 255}}

	b := NewBuffer(2, 1)
	fillPixel(b, 0, 0, 200, 10, 10, 255) // reddish
	fillPixel(b, 1, 0, 10, 10, 230, 255) // bluish

	m := NewMatcher()
	if err := m.Match(b, palette); err != nil {
		t.Fatalf("Match: %v", err)
	}

	if got := pixelAt(b, 0, 0); got != [4]byte{255, 0, 0, 255} {
		t.Fatalf("pixel (0,0) = %v, want pure red", got)
	}
	if got := pixelAt(b, 1, 0); got != [4]byte{0, 0, 255, 255} {
		t.Fatalf("pixel (1,0) = %v, want pure blue", got)
	}
}

func TestMatchSkipsTransparent(t *testing.T) {
	t.Parallel()

	b := NewBuffer(2, 1)
	fillPixel(b, 0, 0, 77, 88, 99, 0)
	fillPixel(b, 1, 0, 77, 88, 99, 10)

	m := NewMatcher()
	if err := m.Match(b, Palette{{R: 255, G: 255, B: 255}}); err != nil {
		t.Fatalf("Match: %v", err)
	}

	if got := pixelAt(b, 0, 0); got != [4]byte{77, 88, 99, 0} {
		t.Fatalf("transparent pixel mutated: %v", got)
	}
	if got := pixelAt(b, 1, 0); got != [4]byte{255, 255, 255, 10} {
		t.Fatalf("translucent pixel = %v, alpha must survive", got)
	}
}

func TestMatchIdempotent(t *testing.T) {
	t.Parallel()

	palette := Palette{{R: 10, G: 20, B: 30}, {R: 200, G: 210, B: 220}}

	b := NewBuffer(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			fillPixel(b, x, y, byte(x*60), byte(y*60), byte((x+y)*30), 255)
		}
	}

	m := NewMatcher()
	if err := m.Match(b, palette); err != nil {
		t.Fatalf("first Match: %v", err)
	}
	first := b.Clone()
	if err := m.Match(b, palette); err != nil {
		t.Fatalf("second Match: %v", err)
	}
	if !bytes.Equal(b.Pix, first.Pix) {
		t.Fatalf("matching already-matched pixels changed the buffer")
	}
}

func TestMatchEmptyPalette(t *testing.T) {
	t.Parallel()

	b := NewBuffer(1, 1)
	fillPixel(b, 0, 0, 1, 2, 3, 255)
	before := b.Clone()

	m := NewMatcher()
	err := m.Match(b, nil)
	if !errors.Is(err, ErrEmptyPalette) {
		t.Fatalf("err = %v, want ErrEmptyPalette", err)
	}
	if !bytes.Equal(b.Pix, before.Pix) {
		t.Fatalf("buffer mutated on error")
	}
}

func TestNearestColorTieBreak(t *testing.T) {
	t.Parallel()

	// Two palette entries equidistant from grey; the earlier entry wins.
	palette := Palette{{R: 100, G: 100, B: 100}, {R: 100, G: 100, B: 100}}
	got := nearestColor(palette, 120, 120, 120)
	if got != palette[0] {
		t.Fatalf("tie broke to %+v, want first entry", got)
	}

	// Exact hit short-circuits regardless of later entries.
	palette = Palette{{R: 1, G: 2, B: 3}, {R: 1, G: 2, B: 3}}
	if got := nearestColor(palette, 1, 2, 3); got != palette[0] {
		t.Fatalf("exact match picked %+v", got)
	}
}

func BenchmarkMatch(b *testing.B) {
	palette := make(Palette, 32)
	for i := range palette {
		palette[i] = Color{R: byte(i * 8), G: byte(255 - i*8), B: byte(i * 3)}
	}

	buf := NewBuffer(128, 128)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = byte(i * 13)
		buf.Pix[i+1] = byte(i * 7)
		buf.Pix[i+2] = byte(i * 29)
		buf.Pix[i+3] = 255
	}

	m := NewMatcher()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.Match(buf, palette); err != nil {
			b.Fatal(err)
		}
	}
}
