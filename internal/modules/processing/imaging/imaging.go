package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/mx-space/paste-uploader/internal/models"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 80

// Encoder downsamples images wider than a maximum width.
type Encoder struct {
	logger *zap.Logger
}

func NewEncoder(logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{logger: logger}
}

// Encode returns file scaled down to maxWidth, keeping the aspect ratio.
// Images already within bounds, or maxWidth <= 0, come back unchanged.
func (e *Encoder) Encode(ctx context.Context, file *models.Attachment, maxWidth int) (*models.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(file.Open())
	if err != nil {
		return nil, fmt.Errorf("invalid image %s: %w", file.Name, err)
	}
	if maxWidth <= 0 || cfg.Width <= maxWidth {
		return file, nil
	}

	src, _, err := image.Decode(file.Open())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width, height := scaledSize(cfg.Width, cfg.Height, maxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	name, contentType := file.Name, file.Type
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode %s: %w", file.Name, err)
		}
		contentType = "image/jpeg"
	default:
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode %s: %w", file.Name, err)
		}
		if format != "png" {
			name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
		}
		contentType = "image/png"
	}

	e.logger.Debug("image resized",
		zap.String("file", file.Name),
		zap.String("format", format),
		zap.Int("from_width", cfg.Width),
		zap.Int("to_width", width),
	)
	return file.WithContent(name, contentType, buf.Bytes()), nil
}

func scaledSize(width, height, maxWidth int) (int, int) {
	h := int(float64(height)*float64(maxWidth)/float64(width) + 0.5)
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}
