package output

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"uicrawler/lib/textutil"
	"unicode"
)

type Stats struct {
	Written int
	Skipped int
}

// Writer persists component code under <root>/<language>/<path>.<ext>.
type Writer struct {
	Root string
	// overwrite files left by a previous run
	Force bool

	stats Stats
}

func NewWriter(root string, force bool) *Writer {
	return &Writer{Root: root, Force: force}
}

func (w *Writer) Stats() Stats {
	return w.stats
}

var extensions = map[string]string{
	"react":       "jsx",
	"alpine":      "html",
	"vue":         "vue",
	"transformed": "html",
}

func Extension(language string) string {
	if ext, ok := extensions[language]; ok {
		return ext
	}
	return language
}

var (
	nonWordRegex   = regexp.MustCompile(`[^\w.]`)
	edgeUnderscore = regexp.MustCompile(`^_+|_+$`)
)

// CleanFilename lowercases a component title and collapses everything but
// word characters and dots into underscores, "Simple Alert" -> "simple_alert".
func CleanFilename(title string) string {
	name := nonWordRegex.ReplaceAllString(strings.ToLower(title), "_")
	return edgeUnderscore.ReplaceAllString(name, "")
}

// ComponentName derives an exported function name from the last directory
// segment and the file name.
func ComponentName(segments []string) string {
	var parts []string
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}

	var name strings.Builder
	for _, p := range parts {
		name.WriteString(textutil.PascalCase(p))
	}
	out := name.String()
	if out == "" {
		return "Component"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "Component" + out
	}
	return out
}

var defaultExport = regexp.MustCompile(`export default function Example\s*\(`)

func renameReactExport(relPath, code string) string {
	segments := strings.Split(strings.Trim(relPath, "/"), "/")
	return defaultExport.ReplaceAllString(
		code,
		fmt.Sprintf("export default function %s(", ComponentName(segments)),
	)
}

// Destination returns the file `Save` would write.
func (w *Writer) Destination(language, relPath string) string {
	relPath = path.Clean("/" + relPath)
	dir := path.Join(language, path.Dir(relPath))
	file := fmt.Sprintf("%s.%s", path.Base(relPath), Extension(language))
	return filepath.Join(w.Root, filepath.FromSlash(dir), file)
}

// SkipExisting reports whether the destination of a language already exists
// and would be left alone by Save, counting it as skipped.
func (w *Writer) SkipExisting(language, relPath string) bool {
	if w.Force {
		return false
	}
	_, err := os.Stat(w.Destination(language, relPath))
	if err != nil {
		return false
	}
	slog.Debug("already exists", "language", language, "path", relPath)
	w.stats.Skipped++
	return true
}

// Save writes `content` for a language, it reports false when the file was
// skipped because it already exists or the content is blank.
func (w *Writer) Save(language, relPath, content string) (bool, error) {
	dest := w.Destination(language, relPath)

	if strings.TrimSpace(content) == "" {
		slog.Warn("empty content, not writing", "language", language, "path", relPath)
		w.stats.Skipped++
		return false, nil
	}

	if !w.Force {
		_, err := os.Stat(dest)
		if err == nil {
			slog.Debug("already exists", "dest", dest)
			w.stats.Skipped++
			return false, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	if language == "react" {
		content = renameReactExport(relPath, content)
	}

	err := os.MkdirAll(filepath.Dir(dest), 0755)
	if err != nil {
		return false, err
	}
	err = os.WriteFile(dest, []byte(content), 0644)
	if err != nil {
		return false, err
	}
	slog.Info("wrote", "language", language, "dest", dest)
	w.stats.Written++
	return true, nil
}
