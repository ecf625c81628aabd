package world

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
)

// ErrSpriteNotFound is returned when no file matches the item kind.
var ErrSpriteNotFound = errors.New("sprite not found")

// SpriteDir renders sprites from PNG files exported by the client. Files are
// named after the item kind, optionally suffixed with the hue:
// 0x1BF2_5.png, 7154_5.png, 0x1BF2.png or 7154.png.
type SpriteDir struct {
	Dir string
}

func (d SpriteDir) candidates(kindID, hue int) []string {
	var names []string
	if hue > 0 {
		names = append(names,
			fmt.Sprintf("0x%04X_%d.png", kindID, hue),
			fmt.Sprintf("%d_%d.png", kindID, hue),
		)
	}
	return append(names,
		fmt.Sprintf("0x%04X.png", kindID),
		fmt.Sprintf("%d.png", kindID),
	)
}

func (d SpriteDir) RenderSprite(kindID, hue int) (image.Image, error) {
	for _, name := range d.candidates(kindID, hue) {
		path := filepath.Join(d.Dir, name)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode sprite %s: %w", path, err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: kind 0x%04X hue %d in %s", ErrSpriteNotFound, kindID, hue, d.Dir)
}
