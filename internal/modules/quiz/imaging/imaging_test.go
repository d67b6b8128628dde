package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 200})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	cases := []struct{ w, h, max, ww, wh int }{
		{3840, 2160, 1920, 1920, 1080},
		{1000, 4000, 1920, 480, 1920},
		{800, 600, 1920, 800, 600},
		{1920, 1920, 1920, 1920, 1920},
		{5000, 1, 1920, 1920, 1},
	}
	for _, tc := range cases {
		w, h := Fit(tc.w, tc.h, tc.max)
		if w != tc.ww || h != tc.wh {
			t.Fatalf("Fit(%d,%d,%d)=%d,%d want %d,%d", tc.w, tc.h, tc.max, w, h, tc.ww, tc.wh)
		}
	}
}

func TestNormalizeDownscales(t *testing.T) {
	n, err := Normalize(context.Background(), pngBytes(t, 2400, 1200), Options{})
	if err != nil {
		t.Fatalf("Normalize()=%v", err)
	}
	if n.Width != 1920 || n.Height != 960 || !n.Scaled || n.Format != "png" {
		t.Fatalf("got %dx%d scaled=%v format=%s", n.Width, n.Height, n.Scaled, n.Format)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(n.JPEG))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 960 {
		t.Fatalf("jpeg is %dx%d", cfg.Width, cfg.Height)
	}
	if !strings.HasPrefix(n.DataURL(), "data:image/jpeg;base64,") || strings.HasPrefix(n.Base64(), "data:") {
		t.Fatalf("bad encodings")
	}
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	n, err := Normalize(context.Background(), pngBytes(t, 320, 200), Options{MaxEdge: 1920, Quality: 88})
	if err != nil {
		t.Fatalf("Normalize()=%v", err)
	}
	if n.Width != 320 || n.Height != 200 || n.Scaled {
		t.Fatalf("got %dx%d scaled=%v", n.Width, n.Height, n.Scaled)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	if _, err := Normalize(context.Background(), nil, Options{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := Normalize(context.Background(), []byte("definitely not an image"), Options{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("garbage: %v", err)
	}
}

// pngHeader is a PNG signature plus an IHDR chunk announcing a w x h
// grayscale image; enough for DecodeConfig, never decodable in full.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:], w)
	binary.BigEndian.PutUint32(data[4:], h)
	data[8] = 8 // bit depth
	data[9] = 0 // grayscale
	chunk := append([]byte("IHDR"), data...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalizeRejectsHugeDimensions(t *testing.T) {
	raw := pngHeader(16000, 16000)
	if len(raw) > MaxUploadBytes {
		t.Fatalf("header unexpectedly large")
	}
	_, err := Normalize(context.Background(), raw, Options{})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}
