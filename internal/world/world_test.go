package world

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/item-publisher/internal/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `
items:
  - serial: 0x40000010
    item_id: 0x1BF2
    hue: 5
    amount: 3
    name: Iron Ingot
    properties:
      - Iron Ingot
      - "Weight: 1 stone"
      - "Value: 5 gold"
  - serial: 0x40000002
    item_id: 3921
    name: Dagger
`

func TestParseSnapshot(t *testing.T) {
	s, err := ParseSnapshot([]byte(snapshotYAML))
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, item.Item{Serial: 0x40000002, KindID: 3921, Amount: 1, Name: "Dagger"}, items[0])
	assert.Equal(t, item.Item{Serial: 0x40000010, KindID: 0x1BF2, Hue: 5, Amount: 3, Name: "Iron Ingot"}, items[1])

	it, ok := s.Resolve(context.Background(), 0x40000010)
	require.True(t, ok)
	props, err := s.PropertyStrings(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, []string{"Iron Ingot", "Weight: 1 stone", "Value: 5 gold"}, props)

	_, ok = s.Resolve(context.Background(), 0x12345)
	assert.False(t, ok)
}

func TestParseSnapshot_Invalid(t *testing.T) {
	_, err := ParseSnapshot([]byte("items: [ {name: x, serial: 0} ]"))
	assert.ErrorContains(t, err, "invalid serial")

	_, err = ParseSnapshot([]byte("items: {"))
	assert.Error(t, err)
}

func TestWaitForProperties_Available(t *testing.T) {
	s, err := ParseSnapshot([]byte(snapshotYAML))
	require.NoError(t, err)

	err = s.WaitForProperties(context.Background(), &item.Item{Serial: 0x40000010}, time.Second)
	assert.NoError(t, err)
}

func TestWaitForProperties_Timeout(t *testing.T) {
	s, err := ParseSnapshot([]byte(snapshotYAML))
	require.NoError(t, err)
	s.pollInterval = 5 * time.Millisecond

	it := &item.Item{Serial: 0x40000002}
	err = s.WaitForProperties(context.Background(), it, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrPropertiesTimeout)

	_, err = s.PropertyStrings(context.Background(), it)
	assert.Error(t, err)
}

func TestWaitForProperties_PicksUpReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - serial: 7\n    item_id: 1\n    name: Ruby\n"), 0644))

	s, err := LoadSnapshot(path)
	require.NoError(t, err)
	s.pollInterval = 5 * time.Millisecond

	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(path, []byte("items:\n  - serial: 7\n    item_id: 1\n    name: Ruby\n    properties: [Ruby, Insured]\n"), 0644)
	}()

	it := &item.Item{Serial: 7}
	require.NoError(t, s.WaitForProperties(context.Background(), it, 2*time.Second))
	props, err := s.PropertyStrings(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ruby", "Insured"}, props)
}

func TestWaitForProperties_ContextCanceled(t *testing.T) {
	s, err := ParseSnapshot([]byte(snapshotYAML))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.WaitForProperties(ctx, &item.Item{Serial: 0x40000002}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestSpriteDir(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "0x1BF2.png"), 10, 12)
	writePNG(t, filepath.Join(dir, "0x1BF2_5.png"), 3, 4)
	writePNG(t, filepath.Join(dir, "3921.png"), 7, 7)
	d := SpriteDir{Dir: dir}

	img, err := d.RenderSprite(0x1BF2, 5)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 4), img.Bounds().Size())

	img, err = d.RenderSprite(0x1BF2, 6)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 12), img.Bounds().Size())

	img, err = d.RenderSprite(3921, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(7, 7), img.Bounds().Size())

	_, err = d.RenderSprite(1, 0)
	assert.ErrorIs(t, err, ErrSpriteNotFound)
}

func TestScriptedTargeter(t *testing.T) {
	st := NewScriptedTargeter(1, 2)
	ctx := context.Background()

	s, _ := st.PromptTarget(ctx, "")
	assert.Equal(t, item.Serial(1), s)
	s, _ = st.PromptTarget(ctx, "")
	assert.Equal(t, item.Serial(2), s)
	s, _ = st.PromptTarget(ctx, "")
	assert.Equal(t, item.NoTarget, s)
	assert.Equal(t, 3, st.Prompts())
}

func TestTargetLabelAndPreview(t *testing.T) {
	it := item.Item{Serial: 0x40000010, KindID: 0x1BF2, Hue: 5, Amount: 3, Name: "Iron Ingot"}

	assert.Equal(t, "3 Iron Ingot  [0x40000010]", targetLabel(it))
	preview := targetPreview(it, []string{"Iron Ingot", "Value: 5 gold"})
	assert.Contains(t, preview, "Kind: 0x1BF2")
	assert.Contains(t, preview, "Value: 5 gold")
}
