package item

import (
	"context"
	"fmt"
	"image"
	"time"
)

// Serial identifies a selectable object in the game world.
type Serial int64

// NoTarget is returned by a Targeter when the operator cancels the prompt.
const NoTarget Serial = -1

// Item is a read-only snapshot of a game object.
// Hue and Amount are always present; they only carry meaning when Hue > 0
// and Amount > 1.
type Item struct {
	Serial Serial
	KindID int
	Hue    int
	Amount int
	Name   string
}

// DisplayName returns the listing name for the item. With withHue set, the
// hue is appended as "<Name> (Hue <n>)".
func (it *Item) DisplayName(withHue bool) string {
	if withHue {
		return fmt.Sprintf("%s (Hue %d)", it.Name, it.Hue)
	}
	return it.Name
}

func (s Serial) String() string {
	return fmt.Sprintf("0x%08X", int64(s))
}

// Targeter asks the operator to pick an object.
type Targeter interface {
	// PromptTarget blocks until the operator selects an object or cancels.
	// Cancellation is reported as NoTarget with a nil error.
	PromptTarget(ctx context.Context, message string) (Serial, error)
}

// Resolver maps a selection handle to an item.
type Resolver interface {
	// Resolve returns false if the object no longer exists.
	Resolve(ctx context.Context, serial Serial) (*Item, bool)
}

// PropertySource exposes the lazily populated property strings of an item.
type PropertySource interface {
	// WaitForProperties blocks until the item's properties are available or
	// the timeout elapses.
	WaitForProperties(ctx context.Context, it *Item, timeout time.Duration) error

	// PropertyStrings returns the ordered property strings. Index 0 is the
	// item name.
	PropertyStrings(ctx context.Context, it *Item) ([]string, error)
}

// SpriteRenderer renders the artwork for an item kind and hue.
type SpriteRenderer interface {
	RenderSprite(kindID, hue int) (image.Image, error)
}
