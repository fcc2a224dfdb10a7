package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"uicrawler/lib/transform"
)

const DefaultBaseURL = "https://tailwindui.com"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Email    string
	Password string
	BaseURL  string
	Output   string

	// languages written per component, "alpine" is derived from the preview
	Languages []string
	// comma separated category allow-list, "all" for everything
	Components string
	// keep only the first pages of the catalog, 0 for all
	Count int

	ForceUpdate bool
	BuildIndex  bool
	Templates   bool
	// request languages the page lacks by switching them server-side
	LanguageSwitch bool

	Transformers []string
	Transform    transform.Options

	AlternateHosts    []string
	AlternatePrefixes []string
	CloudflareBypass  bool
	// directory receiving raw http dumps while debug logging is enabled
	DumpDir string
}

// ParseLanguages parses a comma separated language list, it defaults to html.
func ParseLanguages(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, lang := range strings.Split(raw, ",") {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	if len(out) == 0 {
		return []string{"html"}
	}
	return out
}

// Validate checks the config before any request is made.
func (c Config) Validate() error {
	var errs []error
	if c.Email == "" {
		errs = append(errs, fmt.Errorf("%w: EMAIL is required", ErrInvalidConfig))
	}
	if c.Password == "" {
		errs = append(errs, fmt.Errorf("%w: PASSWORD is required", ErrInvalidConfig))
	}
	if c.Output == "" {
		errs = append(errs, fmt.Errorf("%w: OUTPUT is required", ErrInvalidConfig))
	}
	if c.Count < 0 {
		errs = append(errs, fmt.Errorf("%w: COUNT must not be negative", ErrInvalidConfig))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: BASE_URL must be an absolute url, got %q", ErrInvalidConfig, c.BaseURL))
	}
	_, err = transform.Build(c.Transformers, c.Transform)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}
