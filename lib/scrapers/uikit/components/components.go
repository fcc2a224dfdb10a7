package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"uicrawler/lib/htmlutil"
	"uicrawler/lib/scrapers/uikit/catalog"
	"uicrawler/lib/scrapers/uikit/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("uicrawler.lib.scrapers.uikit.components")

// ErrNotLoggedIn is returned when a page lacks the signs of an
// authenticated session.
var ErrNotLoggedIn = errors.New("not logged in")

const DefaultLanguageEndpoint = "/ui-api/component-code-language"

type Page struct {
	Entry       catalog.Entry
	Breadcrumbs []string
	HTML        string
	Components  []Record
}

type Options struct {
	// when set, the account email must appear on every page
	Email string
	// keys leading from the page payload to the component list
	KeyPath []string
	// endpoint switching the snippet language of a component
	LanguageEndpoint string
}

type Extractor struct {
	Core *core.Client
	opts Options
}

func NewExtractor(coreClient *core.Client, opts Options) Extractor {
	if len(opts.KeyPath) == 0 {
		opts.KeyPath = DefaultKeyPath
	}
	if opts.LanguageEndpoint == "" {
		opts.LanguageEndpoint = DefaultLanguageEndpoint
	}
	return Extractor{Core: coreClient, opts: opts}
}

// Extract fetches a catalog page and reads the components embedded in it.
// Missing payload keys yield an empty page, a malformed payload is an error.
func (e Extractor) Extract(ctx context.Context, entry catalog.Entry) (Page, error) {
	ctx, span := tracer.Start(ctx, "extractor:Extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", entry.URL))

	body, err := e.Core.GetPage(ctx, entry.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return Page{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page")
		return Page{}, err
	}

	payload, ok := core.PagePayload(doc)
	if !ok || (e.opts.Email != "" && !strings.Contains(body, e.opts.Email)) {
		span.SetStatus(codes.Error, ErrNotLoggedIn.Error())
		return Page{}, fmt.Errorf("%w: %s", ErrNotLoggedIn, entry.URL)
	}

	page := Page{
		Entry:       entry,
		Breadcrumbs: breadcrumbs(doc),
		HTML:        body,
	}
	if len(page.Breadcrumbs) > 0 {
		page.Entry.Category = page.Breadcrumbs[0]
	}
	if len(page.Breadcrumbs) > 1 {
		page.Entry.Subcategory = page.Breadcrumbs[1]
	}

	var decoded any
	err = json.Unmarshal([]byte(payload), &decoded)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed page payload")
		return Page{}, fmt.Errorf("parse payload of %s: %w", entry.URL, err)
	}

	objects, err := componentObjects(decoded, e.opts.KeyPath)
	if err != nil {
		slog.WarnContext(ctx, "no components on page", "url", entry.URL, "err", err)
		return page, nil
	}
	for _, obj := range objects {
		page.Components = append(page.Components, parseRecord(obj))
	}

	slog.InfoContext(ctx, "found components", "url", entry.URL, "count", len(page.Components))
	span.SetAttributes(attribute.Int("components", len(page.Components)))
	return page, nil
}

func breadcrumbs(doc *goquery.Document) []string {
	var out []string
	nav := doc.Find(`nav[aria-label="Breadcrumb"]`).First()
	items := nav.Find("li")
	if items.Length() == 0 {
		items = nav.Find("a")
	}
	items.Each(func(_ int, s *goquery.Selection) {
		text := htmlutil.CleanText(s.Text())
		if text != "" {
			out = append(out, text)
		}
	})
	return out
}

// SnippetFor returns the code of `record` in `language`. Languages the page
// does not carry are requested by switching the component's display
// language server-side and reading the page again. An empty string means the
// language is unavailable.
func (e Extractor) SnippetFor(ctx context.Context, entry catalog.Entry, record Record, language string) (string, error) {
	ctx, span := tracer.Start(ctx, "extractor:SnippetFor")
	defer span.End()
	span.SetAttributes(
		attribute.String("component", record.Name),
		attribute.String("language", language),
	)

	language = strings.ToLower(language)
	if code, ok := record.Snippet(language); ok {
		return code, nil
	}
	if record.ID == "" {
		slog.WarnContext(ctx, "component has no id, cannot switch language", "component", record.Name, "language", language)
		return "", nil
	}

	res, err := e.Core.SendJSON(ctx, http.MethodPut, e.opts.LanguageEndpoint, map[string]string{
		"uuid":     record.ID,
		"language": language,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to switch language")
		return "", err
	}
	if res.Status >= 400 {
		slog.WarnContext(ctx, "language switch rejected", "component", record.Name, "language", language, "status", res.Status)
		return "", nil
	}

	page, err := e.Extract(ctx, entry)
	if err != nil {
		return "", err
	}
	for _, fresh := range page.Components {
		if fresh.ID != record.ID {
			continue
		}
		code, _ := fresh.Snippet(language)
		return code, nil
	}
	slog.WarnContext(ctx, "component vanished after language switch", "component", record.Name, "id", record.ID)
	return "", nil
}
