package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/raine/item-publisher/config"
	"github.com/raine/item-publisher/internal/catalog"
	"github.com/raine/item-publisher/internal/compose"
	"github.com/raine/item-publisher/internal/describe"
	"github.com/raine/item-publisher/internal/item"
	"github.com/raine/item-publisher/internal/publisher"
	"github.com/raine/item-publisher/internal/world"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// flagKeys maps path-like flags to the environment keys they override.
var flagKeys = map[string]string{
	"output-dir": config.KeyOutputDir,
	"background": config.KeyBackgroundImage,
	"inventory":  config.KeyInventoryPath,
	"sprites":    config.KeySpriteDir,
	"api-url":    config.KeyCatalogURL,
	"price":      config.KeyDefaultPrice,
	"log-level":  config.KeyLogLevel,
}

var (
	noUpload  bool
	hueInName bool
	serials   []string
)

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Turn game items into store listings",
	Long: "Select items one at a time, draw each onto a background image, save it\n" +
		"and, when enabled, upload it with a generated description to the catalog.",
	SilenceUsage: true,
	RunE:         runPublisher,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the configuration wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnvFile()
		if !isInteractiveTerminal() {
			return fmt.Errorf("setup needs an interactive terminal")
		}
		if !runSetupWizard() {
			return fmt.Errorf("setup cancelled")
		}
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("output-dir", "", "directory for composited images")
	flags.String("background", "", "background image path")
	flags.String("inventory", "", "item snapshot YAML path")
	flags.String("sprites", "", "sprite directory")
	flags.String("api-url", "", "catalog product creation URL")
	flags.String("price", "", "listing price, e.g. 10.00")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.BoolVar(&noUpload, "no-upload", false, "only save images, never upload")
	flags.BoolVar(&hueInName, "hue-in-name", false, "include the hue in listing names and file names")
	flags.StringSliceVar(&serials, "serial", nil, "publish these serials instead of prompting (repeatable, hex or decimal)")

	rootCmd.AddCommand(setupCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := rootCmd.Execute(); err != nil {
		waitOnWindows()
		os.Exit(1)
	}
}

// applyFlagEnv copies changed flags into the environment so required key
// checks and config.Load see them.
func applyFlagEnv(cmd *cobra.Command) {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			os.Setenv(key, f.Value.String())
		}
	}
	if cmd.Flags().Changed("no-upload") {
		os.Setenv(config.KeyUploadEnabled, strconv.FormatBool(!noUpload))
	}
}

func flagOptions(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	if cmd.Flags().Changed("no-upload") {
		opts = append(opts, func(c *config.Config) { c.UploadEnabled = !noUpload })
	}
	if cmd.Flags().Changed("hue-in-name") {
		opts = append(opts, func(c *config.Config) { c.HueInName = hueInName })
	}
	return opts
}

// parseSerials accepts hex (0x40000010) and decimal serials.
func parseSerials(values []string) ([]item.Serial, error) {
	out := make([]item.Serial, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid serial %q: %w", v, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid serial %q: must be positive", v)
		}
		out = append(out, item.Serial(n))
	}
	return out, nil
}

// setupLogging logs to stderr and, unless running under systemd, to a file.
// The returned closer must be called on exit.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd || cfg.LogFile == "" {
		log.Logger = log.Output(consoleWriter)
		return io.NopCloser(nil), nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Info().Str("logFile", cfg.LogFile).Msg("logging to file")
	return logFile, nil
}

func runPublisher(cmd *cobra.Command, args []string) error {
	config.LoadEnvFile()
	applyFlagEnv(cmd)

	if missing := config.CheckRequired(); len(missing) > 0 {
		if isInteractiveTerminal() {
			if !runSetupWizard() {
				return fmt.Errorf("setup cancelled")
			}
			applyFlagEnv(cmd)
		} else {
			fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	cfg, err := config.Load(flagOptions(cmd)...)
	if err != nil {
		return err
	}

	logCloser, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	scripted, err := parseSerials(serials)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	background, err := compose.LoadBackground(cfg.BackgroundImagePath)
	if err != nil {
		fatalWithWait("%v", err)
	}

	snapshot, err := world.LoadSnapshot(cfg.InventoryPath)
	if err != nil {
		return fmt.Errorf("failed to load item snapshot: %w", err)
	}

	var targeter item.Targeter = &world.FuzzyTargeter{Snapshot: snapshot}
	if len(scripted) > 0 {
		targeter = world.NewScriptedTargeter(scripted...)
	}

	runID := uuid.NewString()
	sessionLog, err := publisher.OpenSessionLog(cfg.OutputDir, runID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open session log")
	}

	log.Info().
		Str("runId", runID).
		Str("background", cfg.BackgroundImagePath).
		Str("outputDir", cfg.OutputDir).
		Bool("upload", cfg.UploadEnabled).
		Str("price", cfg.DefaultPrice).
		Msg("starting item publisher")

	p := publisher.New(
		publisher.Config{
			HueInName:     cfg.HueInName,
			UploadEnabled: cfg.UploadEnabled,
			Price:         cfg.DefaultPrice,
		},
		publisher.Deps{
			Targeter: targeter,
			Resolver: snapshot,
			Renderer: world.SpriteDir{Dir: cfg.SpriteDir},
			Describer: describe.NewBuilder(snapshot, describe.Options{
				Filters:     cfg.DescriptionFilters,
				Entity:      cfg.EntityLabel,
				WaitTimeout: cfg.PropertyWait,
			}),
			Composer: compose.NewComposer(background, compose.Options{
				OutputDir: cfg.OutputDir,
				HueInName: cfg.HueInName,
			}),
			Uploader: catalog.NewClient(catalog.ClientOpts{
				URL:     cfg.CatalogURL,
				Token:   cfg.CatalogToken,
				Timeout: cfg.CatalogTimeout,
			}),
			Out: os.Stdout,
			Log: sessionLog,
		},
	)

	_, err = p.Run(ctx)
	return err
}
