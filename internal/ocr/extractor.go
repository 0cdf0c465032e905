// Package ocr downloads post images and extracts their text with an OCR engine.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration.
	_ "image/jpeg" // JPEG decoder registration.
	"image/png"
	"io"
	"net/http"

	_ "golang.org/x/image/bmp"  // BMP decoder registration.
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // TIFF decoder registration.
	_ "golang.org/x/image/webp" // WebP decoder registration.
)

const (
	maxImageBytes = 10 * 1024 * 1024
	// Images narrower than this are scaled up before OCR, at most maxScale times.
	minOCRWidth = 1000
	maxScale    = 4
)

// Extraction failures. Callers treat all of them as "no text".
var (
	ErrFetchStatus = errors.New("unexpected image status")
	ErrDecode      = errors.New("decode image")
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Engine turns a PNG-encoded image into text.
type Engine interface {
	Recognize(ctx context.Context, pngData []byte) (string, error)
}

// Extractor fetches images and runs OCR over them.
type Extractor struct {
	client  HTTPClient
	engine  Engine
	limiter *HostLimiter
}

// New creates an Extractor. A nil limiter disables rate limiting.
func New(client HTTPClient, engine Engine, limiter *HostLimiter) *Extractor {
	return &Extractor{
		client:  client,
		engine:  engine,
		limiter: limiter,
	}
}

// Extract downloads the image at url and returns the text recognized in it.
func (e *Extractor) Extract(ctx context.Context, url string) (string, error) {
	data, err := e.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, upscale(img)); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	text, err := e.engine.Recognize(ctx, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, error) {
	if e.limiter != nil {
		if err := e.limiter.WaitURL(ctx, url); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "PowerAlert/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrFetchStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func upscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || w >= minOCRWidth {
		return img
	}
	scale := min((minOCRWidth+w-1)/w, maxScale)
	if scale <= 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
