// Package compose draws item sprites onto the listing background and writes
// the result as PNG.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/raine/item-publisher/internal/item"
	"github.com/rs/zerolog/log"
)

// VerticalOffset lowers the sprite by this fraction of the canvas height.
const VerticalOffset = 0.2

// ErrBackground is wrapped by every background loading failure.
var ErrBackground = errors.New("failed to load background image")

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// LoadBackground decodes the background canvas. Callers treat an error as
// fatal for the whole run.
func LoadBackground(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackground, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrBackground, path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrBackground, path)
	}
	return img, nil
}

// Placement returns the top-left corner for a w x h sprite on a bgW x bgH
// canvas: centered, then pushed down by VerticalOffset of the canvas height.
// The result may lie partly outside the canvas; drawing clips it.
func Placement(bgW, bgH, w, h int) image.Point {
	return image.Point{
		X: floorDiv(bgW-w, 2),
		Y: floorDiv(bgH-h, 2) + int(math.Round(float64(bgH)*VerticalOffset)),
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FileName derives the output file name from an item name: characters other
// than ASCII letters, digits and whitespace are dropped, whitespace runs
// become one underscore, and the result is lower-cased.
func FileName(name string, hue int, withHue bool) string {
	clean := disallowedChars.ReplaceAllString(name, "")
	clean = whitespaceRuns.ReplaceAllString(strings.TrimSpace(clean), "_")
	if clean == "" {
		clean = "item"
	}
	if withHue {
		clean = fmt.Sprintf("%s_%d", clean, hue)
	}
	return strings.ToLower(clean) + ".png"
}

// Canvas is a composited image backed by a pooled pixel buffer.
type Canvas struct {
	img  *image.RGBA
	pool *sync.Pool
}

// Image returns the pixels. It must not be used after Release.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if c.img == nil {
		return errors.New("canvas already released")
	}
	return png.Encode(w, c.img)
}

// Release hands the pixel buffer back. Calling it again is a no-op.
func (c *Canvas) Release() {
	if c.img == nil {
		return
	}
	buf := c.img.Pix
	c.img = nil
	c.pool.Put(&buf)
}

// Options configure a Composer.
type Options struct {
	OutputDir string
	HueInName bool
}

// Composer composites sprites onto a shared, read-only background.
type Composer struct {
	background image.Image
	opts       Options
	pool       sync.Pool
}

func NewComposer(background image.Image, opts Options) *Composer {
	c := &Composer{background: background, opts: opts}
	size := background.Bounds().Size()
	c.pool.New = func() any {
		buf := make([]uint8, 4*size.X*size.Y)
		return &buf
	}
	return c
}

// Size returns the background dimensions.
func (c *Composer) Size() image.Point {
	return c.background.Bounds().Size()
}

// Compose draws the background at the origin and the sprite at its native
// size on top. The caller must Release the returned canvas.
func (c *Composer) Compose(sprite image.Image) (*Canvas, error) {
	if sprite == nil {
		return nil, errors.New("nil sprite")
	}
	size := c.Size()
	buf := c.pool.Get().(*[]uint8)
	canvas := &Canvas{
		img: &image.RGBA{
			Pix:    *buf,
			Stride: 4 * size.X,
			Rect:   image.Rect(0, 0, size.X, size.Y),
		},
		pool: &c.pool,
	}

	bgBounds := c.background.Bounds()
	draw.Draw(canvas.img, canvas.img.Rect, c.background, bgBounds.Min, draw.Src)

	sb := sprite.Bounds()
	at := Placement(size.X, size.Y, sb.Dx(), sb.Dy())
	draw.Draw(canvas.img, image.Rectangle{Min: at, Max: at.Add(sb.Size())}, sprite, sb.Min, draw.Over)

	return canvas, nil
}

// OutputPath returns where the composite for it is written.
func (c *Composer) OutputPath(it *item.Item) string {
	return filepath.Join(c.opts.OutputDir, FileName(it.Name, it.Hue, c.opts.HueInName))
}

// ComposeToFile renders the item's sprite, composites it and saves the PNG.
// An existing file at the same path is overwritten. The canvas is released
// before returning on every path.
func (c *Composer) ComposeToFile(it *item.Item, renderer item.SpriteRenderer) (string, error) {
	sprite, err := renderer.RenderSprite(it.KindID, it.Hue)
	if err != nil {
		return "", fmt.Errorf("render sprite: %w", err)
	}

	canvas, err := c.Compose(sprite)
	if err != nil {
		return "", err
	}
	defer canvas.Release()

	path := c.OutputPath(it)
	log.Info().Str("path", path).Str("item", it.Name).Msg("saving composite image")
	if err := save(canvas, path); err != nil {
		return "", err
	}
	return path, nil
}

func save(canvas *Canvas, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := canvas.EncodePNG(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Close()
}
