package catalog

import (
	"context"
	"net/url"
	"path"
	"strings"
	"uicrawler/lib/htmlutil"
	"uicrawler/lib/scrapers/uikit/core"
	"uicrawler/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("uicrawler.lib.scrapers.uikit.catalog")

const (
	DefaultRoot         = "/components"
	DefaultSelector     = ".grid a"
	DefaultRequiredPage = "/components/marketing/page-examples/landing-pages"
)

// Entry is a page of the catalog, labels come from the path segments
// following the catalog prefix.
type Entry struct {
	URL         string
	Category    string
	Subcategory string
}

// Filter is an allow-list of top level categories, nil allows everything.
type Filter []string

// ParseFilter reads a comma separated list, "all" or an empty list
// disables filtering.
func ParseFilter(raw string) Filter {
	var filter Filter
	for _, item := range strings.Split(raw, ",") {
		item = textutil.NormalizeName(item)
		if item == "all" {
			return nil
		}
		if item != "" {
			filter = append(filter, item)
		}
	}
	return filter
}

func (f Filter) Allows(category string) bool {
	if len(f) == 0 {
		return true
	}
	category = textutil.NormalizeName(category)
	for _, allowed := range f {
		if allowed == category {
			return true
		}
	}
	return false
}

type Options struct {
	// catalog prefix every page lives under
	Prefix string
	// anchors of the listing page that point to catalog pages
	Selector string
	// hosts other than the base url's that serve the same catalog
	AlternateHosts []string
	// path prefixes stripped before matching, e.g. "/plus"
	AlternatePrefixes []string
	// pages that are always crawled when the filter allows them
	Required []string
}

type Walker struct {
	Core *core.Client
	opts Options
}

func NewWalker(coreClient *core.Client, opts Options) Walker {
	if opts.Prefix == "" {
		opts.Prefix = DefaultRoot
	}
	if opts.Selector == "" {
		opts.Selector = DefaultSelector
	}
	if opts.Required == nil {
		opts.Required = []string{DefaultRequiredPage}
	}
	return Walker{Core: coreClient, opts: opts}
}

// NewEntry labels a catalog path, it reports false for paths outside the
// catalog prefix.
func (w Walker) NewEntry(p string) (Entry, bool) {
	rest, ok := strings.CutPrefix(p, w.opts.Prefix+"/")
	if !ok || rest == "" {
		return Entry{}, false
	}
	segments := strings.Split(rest, "/")
	entry := Entry{
		URL:      p,
		Category: textutil.Humanize(segments[0]),
	}
	if len(segments) > 1 {
		entry.Subcategory = textutil.Humanize(segments[1])
	}
	return entry, true
}

// Slug returns the first path segment after the catalog prefix, the key
// filters match against.
func (w Walker) Slug(e Entry) string {
	return w.category(e.URL)
}

func (w Walker) category(p string) string {
	rest := strings.TrimPrefix(p, w.opts.Prefix+"/")
	first, _, _ := strings.Cut(rest, "/")
	return first
}

// Select keeps the entries the filter allows, in order.
func (w Walker) Select(entries []Entry, filter Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if filter.Allows(w.Slug(e)) {
			out = append(out, e)
		}
	}
	return out
}

// Categories lists the distinct slugs of `entries` in order.
func (w Walker) Categories(entries []Entry) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		slug := w.Slug(e)
		if !seen[slug] {
			seen[slug] = true
			out = append(out, slug)
		}
	}
	return out
}

// Unmatched returns the filter items no entry belongs to.
func (w Walker) Unmatched(entries []Entry, filter Filter) []string {
	available := map[string]bool{}
	for _, slug := range w.Categories(entries) {
		available[textutil.NormalizeName(slug)] = true
	}
	var out []string
	for _, requested := range filter {
		if !available[requested] {
			out = append(out, requested)
		}
	}
	return out
}

func (w Walker) isCatalogHost(host string) bool {
	host = strings.ToLower(host)
	if host == strings.ToLower(w.Core.BaseUrl.Host) {
		return true
	}
	for _, alt := range w.opts.AlternateHosts {
		if host == strings.ToLower(alt) {
			return true
		}
	}
	return false
}

// normalize reduces an href to a clean site-relative path.
func (w Walker) normalize(href string) (string, bool) {
	normalized, err := purell.NormalizeURLString(
		href,
		purell.FlagsSafe|
			purell.FlagRemoveDotSegments|
			purell.FlagRemoveDuplicateSlashes|
			purell.FlagRemoveTrailingSlash|
			purell.FlagRemoveFragment,
	)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", false
	}
	if u.Host != "" && !w.isCatalogHost(u.Host) {
		return "", false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	p := path.Clean("/" + u.Path)
	for _, prefix := range w.opts.AlternatePrefixes {
		if strings.HasPrefix(p, prefix+"/") {
			p = strings.TrimPrefix(p, prefix)
			break
		}
	}
	return p, true
}

// ListPages reads the catalog pages linked from the listing at `root` in
// document order. Required pages missing from the listing are appended
// last.
func (w Walker) ListPages(ctx context.Context, root string, filter Filter) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "walker:ListPages")
	defer span.End()

	body, err := w.Core.GetPage(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse listing")
		return nil, err
	}

	seen := map[string]struct{}{}
	var entries []Entry
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		entry, ok := w.NewEntry(p)
		if !ok || !filter.Allows(w.category(p)) {
			return
		}
		seen[p] = struct{}{}
		entries = append(entries, entry)
	}

	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find(w.opts.Selector)) {
		p, ok := w.normalize(anchor.Href)
		if !ok {
			continue
		}
		add(p)
	}
	for _, required := range w.opts.Required {
		add(required)
	}

	span.SetAttributes(attribute.Int("pages", len(entries)))
	return entries, nil
}

// Limit keeps the first `count` entries, non-positive counts keep all.
func Limit(entries []Entry, count int) []Entry {
	if count <= 0 || count >= len(entries) {
		return entries
	}
	return entries[:count]
}
