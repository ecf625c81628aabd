package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/raine/item-publisher/config"
	"github.com/raine/item-publisher/internal/compose"
	"github.com/raine/item-publisher/internal/world"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupWizard collects the required configuration and saves it to the
// user's config file. Returns true if the publisher should continue starting.
func runSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("Item Publisher - First-time Setup"))
	fmt.Println()

	background := os.Getenv(config.KeyBackgroundImage)
	inventory := os.Getenv(config.KeyInventoryPath)
	sprites := os.Getenv(config.KeySpriteDir)
	outputDir := os.Getenv(config.KeyOutputDir)
	catalogURL := os.Getenv(config.KeyCatalogURL)
	upload := config.UploadEnabled()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Background image").
				Description("PNG the item sprites are drawn onto, e.g. container.png").
				Value(&background).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("background image is required")
					}
					_, err := compose.LoadBackground(s)
					return err
				}),
			huh.NewInput().
				Title("Item snapshot").
				Description("YAML file the game client exports selectable items to").
				Value(&inventory).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("item snapshot is required")
					}
					_, err := world.LoadSnapshot(s)
					return err
				}),
			huh.NewInput().
				Title("Sprite directory").
				Description("Directory with item artwork named by item id, e.g. 0x1BF2.png").
				Value(&sprites).
				Validate(validateDir),
			huh.NewInput().
				Title("Output directory").
				Description("Composited images are saved here").
				Placeholder("items").
				Value(&outputDir),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Upload listings to the catalog?").
				Value(&upload),
			huh.NewInput().
				Title("Catalog API URL").
				Description("Product creation endpoint, e.g. https://shop.example.com/api/products/create").
				Value(&catalogURL).
				Validate(func(s string) error {
					if s == "" {
						if upload {
							return errors.New("URL is required when uploading")
						}
						return nil
					}
					u, err := url.ParseRequestURI(s)
					if err != nil || u.Host == "" {
						return errors.New("must be an absolute http(s) URL")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		config.KeyBackgroundImage: background,
		config.KeyInventoryPath:   inventory,
		config.KeySpriteDir:       sprites,
		config.KeyUploadEnabled:   fmt.Sprint(upload),
	}
	if outputDir != "" {
		values[config.KeyOutputDir] = outputDir
	}
	if catalogURL != "" {
		values[config.KeyCatalogURL] = catalogURL
	}

	configPath, err := writeEnvFile(values)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

func validateDir(s string) error {
	if s == "" {
		return errors.New("directory is required")
	}
	info, err := os.Stat(s)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

// writeEnvFile merges values into the config file and returns its path.
func writeEnvFile(values map[string]string) (string, error) {
	configPath, err := config.FilePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	existing, err := godotenv.Read(configPath)
	if err != nil {
		existing = map[string]string{}
	}
	for k, v := range values {
		existing[k] = v
	}

	content, err := godotenv.Marshal(existing)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	// The file may hold CATALOG_API_TOKEN.
	if err := os.WriteFile(configPath, []byte(content+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configPath, nil
}

// waitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// fatalWithWait logs a fatal error and waits on Windows before exiting.
func fatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	waitOnWindows()
	os.Exit(1)
}
