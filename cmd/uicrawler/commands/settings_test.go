package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(previous) })
}

func unsetenv(t *testing.T, key string) {
	t.Helper()
	previous, ok := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, previous)
			return
		}
		os.Unsetenv(key)
	})
}

func TestSettingsLayering(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`{
		// shared defaults
		email: "file@example.com",
		languages: "react,vue",
		count: 3,
		CHANGECOLOR_TO: "rose",
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, ".env"), []byte("PASSWORD=from-dotenv\nEMAIL=dotenv@example.com\n"), 0644)
	require.NoError(t, err)

	unsetenv(t, "PASSWORD")
	t.Setenv("EMAIL", "env@example.com")
	t.Setenv("ALTERNATE_HOSTS", "a.example.com, b.example.com")

	require.NoError(t, loadSettings())
	cfg := crawlerConfig()

	assert.Equal(t, "env@example.com", cfg.Email)
	assert.Equal(t, "from-dotenv", cfg.Password)
	assert.Equal(t, []string{"react", "vue"}, cfg.Languages)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, "rose", cfg.Transform.ChangeColorTo)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.AlternateHosts)
	assert.Equal(t, "./output", cfg.Output)
	assert.Equal(t, "all", cfg.Components)
	assert.True(t, cfg.LanguageSwitch)
	assert.Empty(t, cfg.DumpDir)
}

func TestSettingsWithoutFiles(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, loadSettings())
}
