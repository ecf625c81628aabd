package main

import (
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/raine/item-publisher/config"
	"github.com/raine/item-publisher/internal/item"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerials(t *testing.T) {
	got, err := parseSerials([]string{"0x40000010", " 42 "})
	require.NoError(t, err)
	assert.Equal(t, []item.Serial{0x40000010, 42}, got)

	for _, bad := range []string{"abc", "0", "-5"} {
		_, err := parseSerials([]string{bad})
		assert.Error(t, err, bad)
	}
}

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().AddFlagSet(rootCmd.Flags())
	require.NoError(t, cmd.Flags().Parse(args))
	t.Cleanup(func() {
		names := []string{"no-upload", "hue-in-name"}
		for name := range flagKeys {
			names = append(names, name)
		}
		for _, name := range names {
			f := rootCmd.Flags().Lookup(name)
			f.Changed = false
			_ = f.Value.Set(f.DefValue)
		}
	})
	return cmd
}

func TestApplyFlagEnv(t *testing.T) {
	t.Setenv(config.KeyBackgroundImage, "env.png")
	t.Setenv(config.KeySpriteDir, "env-sprites")
	t.Setenv(config.KeyDefaultPrice, "")

	cmd := newTestCommand(t, "--background", "flag.png", "--price", "3.5")
	applyFlagEnv(cmd)

	assert.Equal(t, "flag.png", os.Getenv(config.KeyBackgroundImage))
	assert.Equal(t, "3.5", os.Getenv(config.KeyDefaultPrice))
	assert.Equal(t, "env-sprites", os.Getenv(config.KeySpriteDir))
}

func TestCheckRequired_NoUploadSkipsCatalogURL(t *testing.T) {
	t.Setenv(config.KeyBackgroundImage, "bg.png")
	t.Setenv(config.KeyInventoryPath, "items.yaml")
	t.Setenv(config.KeySpriteDir, "sprites")
	t.Setenv(config.KeyCatalogURL, "")
	t.Setenv(config.KeyUploadEnabled, "")

	assert.Equal(t, []string{config.KeyCatalogURL}, config.CheckRequired())

	cmd := newTestCommand(t, "--no-upload")
	applyFlagEnv(cmd)

	assert.Equal(t, "false", os.Getenv(config.KeyUploadEnabled))
	assert.Empty(t, config.CheckRequired())

	cfg, err := config.Load(flagOptions(cmd)...)
	require.NoError(t, err)
	assert.False(t, cfg.UploadEnabled)
}

func TestFlagOptions(t *testing.T) {
	t.Setenv(config.KeyBackgroundImage, "bg.png")
	t.Setenv(config.KeyInventoryPath, "items.yaml")
	t.Setenv(config.KeySpriteDir, "sprites")
	t.Setenv(config.KeyCatalogURL, "")

	cmd := newTestCommand(t, "--no-upload", "--hue-in-name")
	cfg, err := config.Load(flagOptions(cmd)...)
	require.NoError(t, err)

	assert.False(t, cfg.UploadEnabled)
	assert.True(t, cfg.HueInName)
}

func TestWriteEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	_, err := writeEnvFile(map[string]string{config.KeyCatalogToken: "secret"})
	require.NoError(t, err)

	path, err := writeEnvFile(map[string]string{
		config.KeyBackgroundImage: "/data/container.png",
		config.KeySpriteDir:       "/data/sprites",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		config.KeyCatalogToken:    "secret",
		config.KeyBackgroundImage: "/data/container.png",
		config.KeySpriteDir:       "/data/sprites",
	}, values)
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, validateDir(dir))
	assert.Error(t, validateDir(""))
	assert.Error(t, validateDir(dir+"/missing"))
}
