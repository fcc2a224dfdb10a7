package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("uicrawler.lib.transform")

var (
	ErrUnknownTransformer = errors.New("unknown transformer")
	ErrMissingOption      = errors.New("missing transformer option")
)

// Context describes the component a chain runs for, transformers only read it.
type Context struct {
	OutputRoot string
	Title      string
	// slash separated path of the component, "/components/<page>/<file>"
	Path     string
	Language string
	BaseURL  string
}

// Transformer edits the preview document in place, some also write files
// derived from it.
type Transformer func(doc *goquery.Document, tc Context) error

type Step struct {
	Name  string
	Apply Transformer
}

// Chain runs in order, later steps see the edits of earlier ones.
type Chain []Step

type Options struct {
	ChangeColorTo string
	ChangeLogoURL string
	// stylesheet url or complete <link> markup
	TailwindCSS string
	ClassPrefix string
	// directories the file writing transformers write under, react and vue
	// default to subdirectories of the output root
	StripAlpineOutput string
	ReactOutput       string
	VueOutput         string
}

type constructor func(opts Options) (Transformer, error)

var registry = map[string]constructor{
	"addTailwindCss": addTailwindCss,
	"useInter":       useInter,
	"changeColor":    changeColor,
	"changeLogo":     changeLogo,
	"prefixSrc":      prefixSrc,
	"prefixClasses":  prefixClasses,
	"stripAlpine":    stripAlpine,
	"convertReact":   convertReact,
	"convertVue":     convertVue,
}

// Names lists the known transformers.
func Names() []string {
	return []string{
		"addTailwindCss",
		"useInter",
		"changeColor",
		"changeLogo",
		"prefixSrc",
		"prefixClasses",
		"stripAlpine",
		"convertReact",
		"convertVue",
	}
}

// ParseNames splits a comma separated transformer list.
func ParseNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Build resolves transformer names into a chain, it fails on unknown names
// and on transformers missing a required option.
func Build(names []string, opts Options) (Chain, error) {
	chain := make(Chain, 0, len(names))
	for _, name := range names {
		construct, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTransformer, name)
		}
		apply, err := construct(opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		chain = append(chain, Step{Name: name, Apply: apply})
	}
	return chain, nil
}

// ApplyAll runs the chain over `doc` and stops at the first failing step.
func ApplyAll(ctx context.Context, chain Chain, doc *goquery.Document, tc Context) error {
	for _, step := range chain {
		_, span := tracer.Start(ctx, "transform:"+step.Name)
		span.SetAttributes(attribute.String("path", tc.Path))

		err := step.Apply(doc, tc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transformer failed")
			span.End()
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		span.End()
		slog.DebugContext(ctx, "applied transformer", "name", step.Name, "path", tc.Path)
	}
	return nil
}

func writeFile(path string, content string) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// under joins a slash separated component path onto a local directory.
func under(dir, p string) string {
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}
