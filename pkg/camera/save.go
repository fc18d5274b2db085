package camera

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSavePath is where --save-frame writes when no path is given.
const DefaultSavePath = "seed.png"

// JPEGQuality is used when saving to .jpg/.jpeg.
const JPEGQuality = 95

// SaveFrame writes img to path. The format follows the extension: .jpg and
// .jpeg produce JPEG, everything else PNG.
func SaveFrame(path string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("save frame: %w", ErrNoFrame)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("save frame: failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save frame: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: JPEGQuality})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("save frame %s: %w", path, err)
	}
	return nil
}
