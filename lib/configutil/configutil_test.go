package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Email     string   `json:"email"`
	Languages []string `json:"languages"`
	Count     int      `json:"count"`
	Debug     bool     `json:"debug"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "uicrawler.json5")

	_, err := ReadConfig[testConfig](name)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	write(t, name, `{
		// shared defaults
		email: "team@example.com",
		languages: ["html", "react"],
		count: 3,
	}`)
	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	expected := testConfig{Email: "team@example.com", Languages: []string{"html", "react"}, Count: 3}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}

	write(t, filepath.Join(dir, "uicrawler.local.json5"), `{email: "me@example.com", debug: true}`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	expected = testConfig{Email: "me@example.com", Languages: []string{"html", "react"}, Count: 3, Debug: true}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadConfigRejectsMalformed(t *testing.T) {
	name := filepath.Join(t.TempDir(), "broken.json5")
	write(t, name, `{email: `)
	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	write(t, filepath.Join(root, "crawler-test.json5"), `{count: 7}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	config, err := ReadRecursively[testConfig]("crawler-test.json5")
	require.NoError(t, err)
	assert.Equal(t, 7, config.Count)
}
