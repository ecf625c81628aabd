// Package describe turns an item's raw property strings into the listing
// description sent to the catalog.
package describe

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/raine/item-publisher/internal/item"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// LineSeparator terminates description lines. The catalog renders CRLF,
	// so this must not change.
	LineSeparator = "\r\n"

	DefaultEntity      = "UO"
	DefaultWaitTimeout = 1000 * time.Millisecond
)

// DefaultFilters are the substrings that drop a property line.
var DefaultFilters = []string{"weight", "contents", "owner"}

var markupTag = regexp.MustCompile(`<[^>]+>`)

// Description is a formatted listing description.
type Description struct {
	Lines []string
	// Properties holds the raw property strings that were read, index 0
	// included, for operator display.
	Properties []string
	// Fallback is set when no usable lines were found or extraction failed.
	Fallback bool
}

func (d Description) String() string {
	return strings.Join(d.Lines, LineSeparator)
}

// Options configure a Builder. Zero values select the defaults.
type Options struct {
	Filters     []string
	Entity      string
	WaitTimeout time.Duration
}

// Builder builds descriptions from a PropertySource.
type Builder struct {
	props   item.PropertySource
	filters []string
	entity  string
	wait    time.Duration
}

func NewBuilder(props item.PropertySource, opts Options) *Builder {
	b := &Builder{
		props:  props,
		entity: opts.Entity,
		wait:   opts.WaitTimeout,
	}
	if b.entity == "" {
		b.entity = DefaultEntity
	}
	if b.wait <= 0 {
		b.wait = DefaultWaitTimeout
	}
	filters := opts.Filters
	if filters == nil {
		filters = DefaultFilters
	}
	for _, f := range filters {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			b.filters = append(b.filters, f)
		}
	}
	return b
}

// Fallback returns the description used when nothing better is available.
func (b *Builder) Fallback(it *item.Item) Description {
	return Description{
		Lines:    []string{fmt.Sprintf("%s Item: %s", b.entity, it.Name)},
		Fallback: true,
	}
}

// Build never fails: any error from the property source, or a panic inside
// it, yields the fallback description. The "Item Id" line is only added for
// a non-zero KindID, so an item without a kind id whose property lines are
// all filtered gets the fallback.
func (b *Builder) Build(ctx context.Context, it *item.Item) (desc Description) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("item", it.Name).Msg("error getting properties")
			desc = b.Fallback(it)
		}
	}()

	if err := b.props.WaitForProperties(ctx, it, b.wait); err != nil {
		log.Warn().Err(err).Str("item", it.Name).Msg("error getting properties")
		return b.Fallback(it)
	}

	props, err := b.props.PropertyStrings(ctx, it)
	if err != nil {
		log.Warn().Err(err).Str("item", it.Name).Msg("error getting properties")
		return b.Fallback(it)
	}

	for i, p := range props {
		log.Debug().Int("index", i).Str("property", p).Msg("item property")
	}

	lines := append(basicInfo(it), b.PropertyLines(props)...)
	lines = dedupe(lines)
	if len(lines) == 0 {
		fb := b.Fallback(it)
		fb.Properties = props
		return fb
	}
	return Description{Lines: lines, Properties: props}
}

// PropertyLines formats the property strings, skipping index 0 (the name),
// blank lines and lines matching a filter.
func (b *Builder) PropertyLines(props []string) []string {
	var lines []string
	for i, p := range props {
		if i == 0 {
			continue
		}
		p = strings.TrimSpace(p)
		if p == "" || b.filtered(p) {
			continue
		}
		p = strings.TrimSpace(StripMarkup(p))
		if p == "" {
			continue
		}
		lines = append(lines, TitleCase(p))
	}
	return lines
}

func (b *Builder) filtered(s string) bool {
	lower := strings.ToLower(s)
	for _, f := range b.filters {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func basicInfo(it *item.Item) []string {
	var lines []string
	if it.KindID != 0 {
		lines = append(lines, fmt.Sprintf("Item Id: %d", it.KindID))
	}
	if it.Hue > 0 {
		lines = append(lines, fmt.Sprintf("Hue: %d", it.Hue))
	}
	if it.Amount > 1 {
		lines = append(lines, fmt.Sprintf("Quantity: %d", it.Amount))
	}
	return lines
}

func dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// StripMarkup removes <...> tags and keeps the text between them.
func StripMarkup(s string) string {
	return markupTag.ReplaceAllString(s, "")
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
