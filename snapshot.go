package fractal

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

type encodeFunc func(w io.Writer, img image.Image) error

// encoderFor returns the encoder of a file extension, with or without the
// leading dot.
func encoderFor(format string) (encodeFunc, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png":
		return png.Encode, nil
	case "webp":
		return func(w io.Writer, img image.Image) error {
			return nativewebp.Encode(w, img, nil)
		}, nil
	case "tga":
		return tga.Encode, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// EncodeImage writes img to w in the given format (png, webp or tga).
func EncodeImage(w io.Writer, img image.Image, format string) error {
	enc, err := encoderFor(format)
	if err != nil {
		return err
	}
	return enc(w, img)
}

// SaveImage writes img to path in the format named by its extension.
func SaveImage(path string, img image.Image) error {
	enc, err := encoderFor(filepath.Ext(path))
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := enc(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("fractal: encode %s: %w", path, err)
	}
	return f.Close()
}

// snapshotPath names a snapshot taken at t.
func snapshotPath(dir, format string, t time.Time) string {
	name := "fractal-" + t.Format("20060102-150405.000") + "." + strings.TrimPrefix(format, ".")
	return filepath.Join(dir, name)
}
