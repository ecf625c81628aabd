package world

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/raine/item-publisher/internal/item"
)

// FuzzyTargeter lets the operator pick an item from the snapshot in a fuzzy
// finder. ESC or Ctrl+C cancels.
type FuzzyTargeter struct {
	Snapshot *Snapshot
}

func (t *FuzzyTargeter) PromptTarget(ctx context.Context, message string) (item.Serial, error) {
	if err := t.Snapshot.Reload(); err != nil {
		return item.NoTarget, err
	}
	items := t.Snapshot.Items()
	if len(items) == 0 {
		return item.NoTarget, nil
	}

	idx, err := fuzzyfinder.Find(
		items,
		func(i int) string {
			return targetLabel(items[i])
		},
		fuzzyfinder.WithContext(ctx),
		fuzzyfinder.WithHeader(message),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			props, _ := t.Snapshot.properties(items[i].Serial)
			return targetPreview(items[i], props)
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return item.NoTarget, nil
	}
	if err != nil {
		return item.NoTarget, err
	}
	return items[idx].Serial, nil
}

func targetLabel(it item.Item) string {
	label := fmt.Sprintf("%s  [%s]", it.Name, it.Serial)
	if it.Amount > 1 {
		label = fmt.Sprintf("%d %s", it.Amount, label)
	}
	return label
}

func targetPreview(it item.Item, props []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nSerial: %s\nKind: 0x%04X\nHue: %d\nAmount: %d\n", it.Name, it.Serial, it.KindID, it.Hue, it.Amount)
	if len(props) > 1 {
		b.WriteString("\n")
		for _, p := range props[1:] {
			b.WriteString(p + "\n")
		}
	}
	return b.String()
}

// ScriptedTargeter returns the given serials in order, then NoTarget.
type ScriptedTargeter struct {
	mu      sync.Mutex
	serials []item.Serial
	prompts int
}

func NewScriptedTargeter(serials ...item.Serial) *ScriptedTargeter {
	return &ScriptedTargeter{serials: serials}
}

func (t *ScriptedTargeter) PromptTarget(ctx context.Context, message string) (item.Serial, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prompts++
	if len(t.serials) == 0 {
		return item.NoTarget, nil
	}
	s := t.serials[0]
	t.serials = t.serials[1:]
	return s, nil
}

// Prompts reports how many times PromptTarget was called.
func (t *ScriptedTargeter) Prompts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prompts
}
