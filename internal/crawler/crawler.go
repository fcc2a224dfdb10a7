package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"uicrawler/internal/telemetry"
	"uicrawler/lib/assetcache"
	"uicrawler/lib/output"
	"uicrawler/lib/restyutil"
	"uicrawler/lib/scrapers/uikit/catalog"
	"uicrawler/lib/scrapers/uikit/components"
	"uicrawler/lib/scrapers/uikit/core"
	"uicrawler/lib/transform"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("uicrawler.internal.crawler")

type Crawler struct {
	cfg Config
	tel telemetry.API

	client    *core.Client
	cache     *assetcache.Cache
	writer    *output.Writer
	walker    catalog.Walker
	extractor components.Extractor
	chain     transform.Chain

	summary Summary
}

// New wires the crawl components together, `tel` receives recoverable
// conditions and defaults to logging them.
func New(ctx context.Context, cfg Config, tel telemetry.API) (*Crawler, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("crawler", telemetry.NewMeterAPI(tel))

	var dump restyutil.InstrumentOutput
	if cfg.DumpDir != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return nil, err
		}
		dump = fsOutput
	}

	client, err := core.NewClient(ctx, core.ClientOptions{
		BaseUrl:          cfg.BaseURL,
		CloudflareBypass: cfg.CloudflareBypass,
		DumpOutput:       dump,
	})
	if err != nil {
		return nil, err
	}
	cache, err := assetcache.Load(client, cfg.Output)
	if err != nil {
		return nil, err
	}
	chain, err := transform.Build(cfg.Transformers, cfg.Transform)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		cfg:    cfg,
		tel:    tel,
		client: client,
		cache:  cache,
		writer: output.NewWriter(cfg.Output, cfg.ForceUpdate),
		walker: catalog.NewWalker(client, catalog.Options{
			AlternateHosts:    cfg.AlternateHosts,
			AlternatePrefixes: cfg.AlternatePrefixes,
		}),
		extractor: components.NewExtractor(client, components.Options{Email: cfg.Email}),
		chain:     chain,
	}, nil
}

// Run performs one full crawl. The summary is filled in as far as the run
// got, also when it fails.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "crawler:Run")
	defer span.End()

	start := time.Now()
	err := c.run(ctx)
	c.summary.Written = c.writer.Stats().Written
	c.summary.Skipped = c.writer.Stats().Skipped
	c.summary.Assets = c.cache.Stats()
	c.summary.Elapsed = time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "crawl failed")
	}
	return c.summary, err
}

func (c *Crawler) run(ctx context.Context) error {
	slog.InfoContext(ctx, "logging in", "base_url", c.cfg.BaseURL)
	ok, err := c.client.Login(ctx, c.cfg.Email, c.cfg.Password)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrInvalidCredentials
	}
	slog.InfoContext(ctx, "logged in", "output", c.cfg.Output)

	all, err := c.walker.ListPages(ctx, catalog.DefaultRoot, nil)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	filter := catalog.ParseFilter(c.cfg.Components)
	c.summary.NotFound = notFound(
		c.walker.Unmatched(all, filter),
		c.walker.Categories(all),
	)
	for _, missing := range c.summary.NotFound {
		c.tel.ReportWarning("category.not_found", "requested", missing.Requested, "suggestion", missing.Suggestion)
	}
	entries := catalog.Limit(c.walker.Select(all, filter), c.cfg.Count)

	for _, entry := range entries {
		err := c.processPage(ctx, entry)
		if errors.Is(err, core.ErrRetriesExhausted) {
			return err
		}
		if errors.Is(err, core.ErrUnexpectedStatus) {
			c.summary.PagesFailed++
			c.tel.ReportBroken("page.failed", "url", entry.URL, "err", err)
			continue
		}
		if err != nil {
			return err
		}
		c.summary.Pages++
		c.tel.ReportCount("pages", int64(c.summary.Pages))
	}

	if c.cfg.BuildIndex {
		slog.InfoContext(ctx, "saving listing preview, this may take a while")
		listing, err := c.client.GetPage(ctx, catalog.DefaultRoot)
		if err != nil {
			return err
		}
		err = c.savePreviewPage(ctx, catalog.DefaultRoot, listing)
		if err != nil {
			return err
		}
	}

	if c.cfg.Templates {
		err = c.saveTemplates(ctx)
		if err != nil {
			return err
		}
	}

	return c.cache.Save()
}

func (c *Crawler) processPage(ctx context.Context, entry catalog.Entry) error {
	ctx, span := tracer.Start(ctx, "crawler:processPage")
	defer span.End()
	span.SetAttributes(attribute.String("url", entry.URL))

	slog.InfoContext(ctx, "processing page", "url", entry.URL)
	page, err := c.extractor.Extract(ctx, entry)
	if err != nil {
		return err
	}

	for _, record := range page.Components {
		err := c.processComponent(ctx, page, record)
		if err != nil {
			return fmt.Errorf("component %q: %w", record.Name, err)
		}
		c.summary.Components++
	}
	c.tel.ReportCount("components", int64(c.summary.Components))

	if c.cfg.BuildIndex {
		return c.savePreviewPage(ctx, entry.URL, page.HTML)
	}
	return nil
}

func (c *Crawler) processComponent(ctx context.Context, page components.Page, record components.Record) error {
	relPath := page.Entry.URL + "/" + output.CleanFilename(record.Name)

	for _, language := range c.cfg.Languages {
		if language == "alpine" {
			continue
		}
		// skipped before the snippet lookup, a language switch changes
		// server state
		if c.writer.SkipExisting(language, relPath) {
			continue
		}
		code, err := c.snippet(ctx, page.Entry, record, language)
		if err != nil {
			return err
		}
		if strings.TrimSpace(code) == "" {
			c.summary.SnippetsMissing++
			c.tel.ReportWarning("snippet.missing", "component", record.Name, "language", language)
			continue
		}
		_, err = c.writer.Save(language, relPath, code)
		if err != nil {
			return err
		}
	}

	if record.PreviewMarkup == "" {
		return nil
	}

	if slices.Contains(c.cfg.Languages, "alpine") {
		code, err := components.PreviewCode(record.PreviewMarkup)
		if err != nil {
			return err
		}
		_, err = c.writer.Save("alpine", relPath, code)
		if err != nil {
			return err
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(record.PreviewMarkup))
	if err != nil {
		return err
	}
	err = c.resolveAssets(ctx, doc)
	if err != nil {
		return err
	}
	return c.transform(ctx, doc, record, relPath)
}

func (c *Crawler) snippet(ctx context.Context, entry catalog.Entry, record components.Record, language string) (string, error) {
	if c.cfg.LanguageSwitch {
		return c.extractor.SnippetFor(ctx, entry, record, language)
	}
	code, _ := record.Snippet(language)
	return code, nil
}

func (c *Crawler) transform(ctx context.Context, doc *goquery.Document, record components.Record, relPath string) error {
	if len(c.chain) == 0 {
		return nil
	}
	language := "html"
	if len(c.cfg.Languages) > 0 {
		language = c.cfg.Languages[0]
	}
	tc := transform.Context{
		OutputRoot: c.cfg.Output,
		Title:      record.Name,
		Path:       relPath,
		Language:   language,
		BaseURL:    c.cfg.BaseURL,
	}
	err := transform.ApplyAll(ctx, c.chain, doc, tc)
	if err != nil {
		return err
	}
	final, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return err
	}
	written, err := c.writer.Save("transformed", relPath, final)
	if err != nil {
		return err
	}
	if written {
		c.summary.Transformed++
	}
	return nil
}

func (c *Crawler) saveTemplates(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "crawler:saveTemplates")
	defer span.End()

	templates, err := c.walker.Templates(ctx, catalog.DefaultTemplatesPage)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "found templates", "count", len(templates))

	for _, template := range templates {
		dest, ok := template.Dest()
		if !ok {
			c.tel.ReportWarning("template.invalid_url", "title", template.Title, "url", template.URL)
			continue
		}
		slog.InfoContext(ctx, "downloading template", "title", template.Title)
		outcome, err := c.cache.ResolveTo(ctx, template.DownloadURL(), dest)
		if err != nil {
			return err
		}
		switch outcome {
		case assetcache.Fetched:
			c.summary.TemplatesDownloaded++
		case assetcache.NotModified, assetcache.Skipped:
			c.summary.TemplatesUnchanged++
		case assetcache.Failed:
			c.tel.ReportBroken("template.failed", "title", template.Title)
		}
	}
	return nil
}
