package crawler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"uicrawler/lib/assetcache"

	"github.com/PuerkitoBio/goquery"
)

const redactedUser = "Licensed User"

var (
	formTokens = regexp.MustCompile(`name="(csrf-token|_token)"\s+(content|value)="(.+?)"`)
	assetQuery = regexp.MustCompile(`(css|js)(\?id=[a-f0-9]+)`)
)

// replaceTokens pins per-request tokens and asset version queries so
// repeated runs produce identical preview pages.
func replaceTokens(page string) string {
	page = formTokens.ReplaceAllString(page, `name="$1" $2="CONSTANT_TOKEN"`)
	return assetQuery.ReplaceAllString(page, "$1")
}

func redact(page, email string) string {
	if email == "" {
		return page
	}
	return strings.ReplaceAll(page, email, redactedUser)
}

// resolveAssets downloads the site-relative assets a document references.
func (c *Crawler) resolveAssets(ctx context.Context, doc *goquery.Document) error {
	for _, ref := range assetcache.References(doc) {
		_, err := c.cache.Resolve(ctx, ref)
		if err != nil {
			return err
		}
	}
	return nil
}

// savePreviewPage mirrors a catalog page and its assets under the preview
// subtree.
func (c *Crawler) savePreviewPage(ctx context.Context, pagePath, page string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return err
	}
	err = c.resolveAssets(ctx, doc)
	if err != nil {
		return err
	}

	dir := filepath.Join(c.cfg.Output, assetcache.PreviewDir, filepath.FromSlash(strings.TrimPrefix(pagePath, "/")))
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	preview := redact(replaceTokens(page), c.cfg.Email)
	err = os.WriteFile(filepath.Join(dir, "index.html"), []byte(preview), 0644)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "wrote preview page", "path", pagePath)
	return nil
}
