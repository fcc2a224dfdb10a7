package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"uicrawler/lib/scrapers/uikit/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("uicrawler.lib.assetcache")

const SnapshotName = "assets.json"

// PreviewDir is the subtree preview assets are mirrored under.
const PreviewDir = "preview"

// Snapshot maps a destination path, relative to the output root and
// slash-separated, to the ETag it was last fetched with.
type Snapshot map[string]string

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type Fetcher interface {
	Do(ctx context.Context, req core.Request) (core.Response, error)
}

type Outcome int

const (
	Skipped Outcome = iota
	NotModified
	Fetched
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case NotModified:
		return "not-modified"
	case Fetched:
		return "fetched"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Stats struct {
	Fetched     int
	NotModified int
	Skipped     int
	Failed      int
}

type Cache struct {
	root     string
	client   Fetcher
	previous Snapshot
	current  Snapshot
	resolved map[string]struct{}
	stats    Stats
}

// Load reads the snapshot left by the previous run under `root`, a missing
// snapshot starts an empty cache.
func Load(client Fetcher, root string) (*Cache, error) {
	previous := Snapshot{}
	buff, err := os.ReadFile(filepath.Join(root, SnapshotName))
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no asset snapshot", "root", root)
	} else if err != nil {
		return nil, err
	} else if err := json.Unmarshal(buff, &previous); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SnapshotName, err)
	}

	return &Cache{
		root:     root,
		client:   client,
		previous: previous,
		current:  previous.clone(),
		resolved: map[string]struct{}{},
	}, nil
}

func (c *Cache) Stats() Stats {
	return c.stats
}

// Token returns the identity token recorded for `dest` in this run.
func (c *Cache) Token(dest string) (string, bool) {
	token, ok := c.current[dest]
	return token, ok
}

func (c *Cache) Resolved(dest string) bool {
	_, ok := c.resolved[dest]
	return ok
}

// LocalPath maps a site-relative asset url onto its destination under the
// preview subtree, query strings are dropped. Absolute and protocol-relative
// urls are not eligible.
func LocalPath(rawUrl string) (string, bool) {
	if !strings.HasPrefix(rawUrl, "/") || strings.HasPrefix(rawUrl, "//") {
		return "", false
	}
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "", false
	}
	clean := path.Clean(u.Path)
	if clean == "/" || clean == "." {
		return "", false
	}
	return PreviewDir + clean, true
}

// References lists the src or href of every link in head and every script
// and image in the document.
func References(doc *goquery.Document) []string {
	var refs []string
	doc.Find("head>link,script,img").Each(func(_ int, s *goquery.Selection) {
		ref, ok := s.Attr("src")
		if !ok || ref == "" {
			ref = s.AttrOr("href", "")
		}
		if ref != "" {
			refs = append(refs, ref)
		}
	})
	return refs
}

// Resolve makes sure a preview asset is present locally, urls that are not
// site-relative are ignored.
func (c *Cache) Resolve(ctx context.Context, rawUrl string) (Outcome, error) {
	dest, ok := LocalPath(rawUrl)
	if !ok {
		return Skipped, nil
	}
	return c.ResolveTo(ctx, rawUrl, dest)
}

// ResolveTo fetches `target` into `dest` (relative to the output root) unless
// it was already resolved in this run, revalidating with the previous run's
// token when the local copy still exists.
func (c *Cache) ResolveTo(ctx context.Context, target, dest string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "cache:Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", target),
		attribute.String("dest", dest),
	)

	if c.Resolved(dest) {
		c.stats.Skipped++
		return Skipped, nil
	}

	localPath := filepath.Join(c.root, filepath.FromSlash(dest))
	req := core.Request{Method: http.MethodGet, URL: target}
	if token, ok := c.previous[dest]; ok && token != "" && fileExists(localPath) {
		req.Header = map[string]string{"If-None-Match": token}
	}

	res, err := c.client.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch asset")
		return Failed, err
	}
	c.resolved[dest] = struct{}{}

	switch {
	case res.Status == http.StatusNotModified:
		c.stats.NotModified++
		return NotModified, nil
	case res.OK():
	default:
		slog.WarnContext(ctx, "asset not downloaded", "url", target, "status", res.Status)
		c.stats.Failed++
		return Failed, nil
	}

	err = os.MkdirAll(filepath.Dir(localPath), 0755)
	if err != nil {
		return Failed, err
	}
	err = os.WriteFile(localPath, res.Body, 0644)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write asset")
		return Failed, err
	}

	if etag := res.ETag(); etag != "" {
		c.current[dest] = etag
	} else {
		delete(c.current, dest)
	}
	c.stats.Fetched++
	slog.DebugContext(ctx, "asset written", "dest", dest, "etag", res.ETag())
	return Fetched, nil
}

// Save overwrites the snapshot with the tokens of this run.
func (c *Cache) Save() error {
	buff, err := json.MarshalIndent(c.current, "", "  ")
	if err != nil {
		return err
	}
	err = os.MkdirAll(c.root, 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.root, SnapshotName), buff, 0644)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
