// Package publisher runs the select, compose, describe and upload loop.
package publisher

import (
	"context"
	"fmt"
	"io"

	"github.com/raine/item-publisher/internal/catalog"
	"github.com/raine/item-publisher/internal/describe"
	"github.com/raine/item-publisher/internal/item"
	"github.com/rs/zerolog/log"
)

// Describer builds listing descriptions. It must not fail.
type Describer interface {
	Build(ctx context.Context, it *item.Item) describe.Description
}

// Composer renders and saves the listing image for an item.
type Composer interface {
	ComposeToFile(it *item.Item, renderer item.SpriteRenderer) (string, error)
}

// Uploader submits a listing to the catalog.
type Uploader interface {
	Upload(ctx context.Context, imagePath, name, description, price string) catalog.Result
}

// Outcome is the result of processing one selection.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSaveFailed
	OutcomeSaved
	OutcomeUploaded
	OutcomeUploadFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSaveFailed:
		return "save failed"
	case OutcomeSaved:
		return "saved"
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeUploadFailed:
		return "upload failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Stats counts outcomes over a run.
type Stats struct {
	Selected     int
	Skipped      int
	SaveFailed   int
	Saved        int
	Uploaded     int
	UploadFailed int
}

func (s *Stats) add(o Outcome) {
	switch o {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeSaveFailed:
		s.SaveFailed++
	case OutcomeSaved:
		s.Saved++
	case OutcomeUploaded:
		s.Saved++
		s.Uploaded++
	case OutcomeUploadFailed:
		s.Saved++
		s.UploadFailed++
	}
}

// Config is the part of the run configuration the loop needs.
type Config struct {
	HueInName     bool
	UploadEnabled bool
	Price         string
	Prompt        string
}

// Deps are the collaborators of a Publisher.
type Deps struct {
	Targeter  item.Targeter
	Resolver  item.Resolver
	Renderer  item.SpriteRenderer
	Describer Describer
	Composer  Composer
	Uploader  Uploader
	Out       io.Writer
	Log       *SessionLog
}

// Publisher processes one selected item at a time until the operator
// cancels.
type Publisher struct {
	cfg Config
	Deps
}

func New(cfg Config, deps Deps) *Publisher {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Publisher{cfg: cfg, Deps: deps}
}

// Run prompts for targets until the operator cancels, the prompt fails, or
// ctx is done. ctx is only checked between items; an item that has started
// processing runs to completion. A prompt failure is returned; the
// termination notice is printed once in every case.
func (p *Publisher) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	var runErr error

	for ctx.Err() == nil {
		serial, err := p.Targeter.PromptTarget(ctx, p.cfg.Prompt)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("target prompt failed")
				runErr = fmt.Errorf("prompt target: %w", err)
			}
			break
		}
		if serial <= 0 || serial == item.NoTarget {
			break
		}

		stats.Selected++
		outcome := p.Process(context.WithoutCancel(ctx), serial)
		stats.add(outcome)
		fmt.Fprintln(p.Out, separator)
	}

	p.finish(stats)
	return stats, runErr
}

func (p *Publisher) finish(stats Stats) {
	fmt.Fprintln(p.Out, summaryMessage(stats))
	p.Log.Done("selected=%d saved=%d uploaded=%d uploadFailed=%d skipped=%d saveFailed=%d",
		stats.Selected, stats.Saved, stats.Uploaded, stats.UploadFailed, stats.Skipped, stats.SaveFailed)
	log.Info().
		Int("selected", stats.Selected).
		Int("saved", stats.Saved).
		Int("uploaded", stats.Uploaded).
		Int("uploadFailed", stats.UploadFailed).
		Msg("selection loop finished")
}

// Process handles a single selection: resolve, save the composite image and,
// when enabled, describe and upload it. Failures are reported and turned into
// an Outcome.
func (p *Publisher) Process(ctx context.Context, serial item.Serial) Outcome {
	it, ok := p.Resolver.Resolve(ctx, serial)
	if !ok {
		log.Warn().Str("serial", serial.String()).Msg("selected item no longer exists, skipping")
		p.Log.Select("%s not found, skipped", serial)
		return OutcomeSkipped
	}
	p.Log.Select("%s %q kind=0x%04X hue=%d amount=%d", serial, it.Name, it.KindID, it.Hue, it.Amount)

	name := it.DisplayName(p.cfg.HueInName)

	path, err := p.Composer.ComposeToFile(it, p.Renderer)
	if err != nil {
		log.Error().Err(err).Str("item", it.Name).Msg("failed to save composite image")
		p.Log.Error("%s: %v", name, err)
		fmt.Fprintf(p.Out, "Failed to save image for %s: %v\n", name, err)
		return OutcomeSaveFailed
	}
	fmt.Fprintf(p.Out, "Saved to %s\n", path)
	p.Log.Save("%s -> %s", name, path)

	if !p.cfg.UploadEnabled {
		return OutcomeSaved
	}

	fmt.Fprintf(p.Out, "Uploading %s to API...\n", name)
	fmt.Fprintln(p.Out, "Extracting item properties...")
	desc := p.Describer.Build(ctx, it)
	fmt.Fprintln(p.Out, propertyListing(desc.Properties))

	result := p.Uploader.Upload(ctx, path, name, desc.String(), p.cfg.Price)
	if !result.Success {
		p.Log.Upload("%s failed: %s", name, result.Error)
		fmt.Fprintln(p.Out, uploadFailedMessage(name, result.Error))
		return OutcomeUploadFailed
	}

	p.Log.Upload("%s product=%s url=%s", name, result.ProductID, result.ImageURL)
	fmt.Fprintln(p.Out, uploadedMessage(name, result.ProductID, result.ImageURL))
	return OutcomeUploaded
}
