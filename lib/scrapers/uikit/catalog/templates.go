package catalog

import (
	"context"
	"net/url"
	"path"
	"strings"
	"uicrawler/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultTemplatesPage = "/templates"

type Template struct {
	Title string
	URL   string
}

// DownloadURL is the archive endpoint of the template.
func (t Template) DownloadURL() string {
	return strings.TrimSuffix(t.URL, "/") + "/download"
}

// Dest is where the archive is stored relative to the output root,
// "<dir>/<name>.zip" mirroring the template's path.
func (t Template) Dest() (string, bool) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return "", false
	}
	p := path.Clean("/" + u.Path)
	if p == "/" {
		return "", false
	}
	return strings.TrimPrefix(p, "/") + ".zip", true
}

// Templates lists the downloadable templates of the page at `p`.
func (w Walker) Templates(ctx context.Context, p string) ([]Template, error) {
	ctx, span := tracer.Start(ctx, "walker:Templates")
	defer span.End()

	body, err := w.Core.GetPage(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch templates")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse templates")
		return nil, err
	}

	var templates []Template
	doc.Find(`section[id^="product"]`).Each(func(_ int, section *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, section.Find("h2>a"))
		if len(anchors) == 0 {
			return
		}
		href, err := w.Core.Resolve(anchors[0].Href)
		if err != nil {
			return
		}
		templates = append(templates, Template{
			Title: anchors[0].Name,
			URL:   href,
		})
	})

	span.SetAttributes(attribute.Int("templates", len(templates)))
	return templates, nil
}
