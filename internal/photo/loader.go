// Package photo turns an uploaded image into a complete wizard.Photo.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/wizard"
)

const (
	DefaultMaxBytes     = 10 << 20
	DefaultMaxDimension = 1600
	DefaultMaxPixels    = 40_000_000
	jpegQuality         = 85
	sniffLen            = 512
)

// Loader errors
var (
	ErrTooLarge    = errors.New("photo exceeds size limit")
	ErrUnsupported = errors.New("photo format not supported")
	ErrDecode      = errors.New("photo could not be decoded")
	ErrEmpty       = errors.New("photo is empty")
)

type codec struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	"image/jpeg": {jpeg.Decode, jpeg.DecodeConfig},
	"image/png":  {png.Decode, png.DecodeConfig},
	"image/gif":  {gif.Decode, gif.DecodeConfig},
	"image/webp": {webp.Decode, webp.DecodeConfig},
}

// Loader reads, validates and normalizes uploaded images.
type Loader struct {
	MaxBytes     int64
	MaxDimension int
	// MaxPixels bounds the decoded width*height, checked from the header
	// before any pixel memory is allocated.
	MaxPixels int64
}

// NewLoader returns a loader with the given bounds; zero values use defaults.
func NewLoader(maxBytes int64, maxDimension int) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Loader{MaxBytes: maxBytes, MaxDimension: maxDimension, MaxPixels: DefaultMaxPixels}
}

// Load reads the whole image and returns it re-encoded. The result is either a
// complete photo or an error; no partial photo is ever returned.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*wizard.Photo, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, ErrTooLarge
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(raw[:min(len(raw), sniffLen)])
	c, ok := codecs[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}

	cfg, err := c.config(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	maxPixels := l.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := c.decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img = l.fit(img)

	var out bytes.Buffer
	outType := "image/jpeg"
	if contentType == "image/png" || contentType == "image/gif" {
		outType = "image/png"
		err = png.Encode(&out, img)
	} else {
		err = jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}

	b := img.Bounds()
	applog.LogInfo(ctx, "photo loaded",
		zap.String("sourceType", contentType),
		zap.String("contentType", outType),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.Int("bytes", out.Len()),
	)

	return &wizard.Photo{
		ContentType: outType,
		Data:        out.Bytes(),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// fit scales img down so its longest edge is at most MaxDimension.
func (l *Loader) fit(img image.Image) image.Image {
	maxDim := l.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = max(1, h*maxDim/w)
	} else {
		nh = maxDim
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
