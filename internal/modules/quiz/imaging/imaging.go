// Package imaging bounds photo uploads before they are sent anywhere: the
// longest edge is capped and the result re-encoded as JPEG.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxEdge = 1920
	DefaultQuality = 88
	MaxUploadBytes = 20 << 20
	// MaxPixels bounds the decoded size; compressed formats can expand far
	// beyond MaxUploadBytes.
	MaxPixels = 50_000_000
)

var (
	ErrEmpty    = errors.New("image is empty")
	ErrTooLarge = errors.New("image exceeds upload limit")
	ErrInvalid  = errors.New("unsupported or corrupt image")
)

type Options struct {
	MaxEdge int
	Quality int
}

func (o Options) withDefaults() Options {
	if o.MaxEdge <= 0 {
		o.MaxEdge = DefaultMaxEdge
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Normalized is a re-encoded JPEG ready for vision chat or OCR.
type Normalized struct {
	JPEG   []byte
	Width  int
	Height int
	Scaled bool
	// Format is the decoded source format, e.g. "png".
	Format string
}

// Base64 is the payload without a data: prefix.
func (n Normalized) Base64() string {
	return base64.StdEncoding.EncodeToString(n.JPEG)
}

func (n Normalized) DataURL() string {
	return "data:image/jpeg;base64," + n.Base64()
}

// Normalize decodes raw (jpeg, png, gif or webp), downscales it so the
// longest edge is at most MaxEdge, flattens transparency onto white and
// encodes JPEG at Quality.
func Normalize(ctx context.Context, raw []byte, opts Options) (Normalized, error) {
	opts = opts.withDefaults()
	if len(raw) == 0 {
		return Normalized{}, ErrEmpty
	}
	if len(raw) > MaxUploadBytes {
		return Normalized{}, ErrTooLarge
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Normalized{}, ErrInvalid
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Normalized{}, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := ctx.Err(); err != nil {
		return Normalized{}, err
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Normalized{}, ErrInvalid
	}
	w, h := Fit(b.Dx(), b.Dy(), opts.MaxEdge)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Normalized{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Normalized{
		JPEG:   out.Bytes(),
		Width:  w,
		Height: h,
		Scaled: w != b.Dx() || h != b.Dy(),
		Format: format,
	}, nil
}

// Fit scales (w, h) down so neither side exceeds maxEdge, keeping the aspect
// ratio. Images already within bounds are returned unchanged.
func Fit(w, h, maxEdge int) (int, int) {
	longest := max(w, h)
	if maxEdge <= 0 || longest <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(longest)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return nw, nh
}
