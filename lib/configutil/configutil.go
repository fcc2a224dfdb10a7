package configutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName returns the override file of `name`, "a/b.json5" -> "a/b.local.json5".
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readJson5[T any](name string, out *T) (bool, error) {
	buff, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(buff) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(buff, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

// ReadConfig reads a json5 file and merges `<name>.local.<ext>` over it,
// non-zero fields of the local file win. When neither file exists the error
// wraps os.ErrNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readJson5(name, &out)
	if err != nil {
		return out, err
	}

	var override T
	local := localName(name)
	foundLocal, err := readJson5(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Debug("merged config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return out, nil
}

// ReadRecursively looks for `name` in the working directory and each of its
// parents, returning the first configuration found.
func ReadRecursively[T any](name string) (T, error) {
	var out T
	current, err := os.Getwd()
	if err != nil {
		return out, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return out, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return out, fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		current = parent
	}
}
