package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"uicrawler/internal/telemetry"
	"uicrawler/lib/output"
	"uicrawler/lib/scrapers/uikit/catalog"
	"uicrawler/lib/scrapers/uikit/components"
	"uicrawler/lib/scrapers/uikit/core"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "me@example.com"
	testPassword = "hunter2"
	assetEtag    = `"asset-v1"`
	templateEtag = `"salient-v1"`
)

var sitePages = map[string][]string{
	"/components/application-ui/feedback/alerts": {"Simple Alert", "With Actions"},
	"/components/marketing/sections/heroes":      {"Split Hero"},
	catalog.DefaultRequiredPage:                   {"Landing"},
}

// fakeSite emulates the upstream catalog: a cookie session behind a json
// login, pages embedding their components, a per component language switch
// and assets honoring If-None-Match.
type fakeSite struct {
	mu        sync.Mutex
	hits      map[string]int
	languages map[string]string
	// paths answering 500 on every request
	failing map[string]bool
	server  *httptest.Server
}

func newFakeSite(t *testing.T) *fakeSite {
	s := &fakeSite{hits: map[string]int{}, languages: map[string]string{}, failing: map[string]bool{}}
	s.server = httptest.NewServer(s)
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakeSite) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *fakeSite) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func snippetFor(name, language string) string {
	if language == "react" {
		return fmt.Sprintf("export default function Example() {\n  return <div className=\"p-4\">%s</div>\n}\n", name)
	}
	return fmt.Sprintf(`<div class="p-4">%s</div>`, name)
}

const iframe = `<html><head><link rel="stylesheet" href="/css/app.css?id=abc123"><script src="/js/app.js"></script></head>` +
	`<body><div class="p-4"><div class="bg-indigo-600" x-data="{ open: false }"><img src="/img/logos/mark.svg"></div></div></body></html>`

func (s *fakeSite) payload(names []string) string {
	var list []map[string]any
	for _, name := range names {
		id := output.CleanFilename(name)
		language := s.languages[id]
		if language == "" {
			language = "html"
		}
		list = append(list, map[string]any{
			"name":       name,
			"uuid":       id,
			"snippets":   []map[string]string{{"language": strings.ToUpper(language), "snippet": snippetFor(name, language)}},
			"iframeHtml": iframe,
		})
	}
	buff, _ := json.Marshal(map[string]any{
		"component": "Components/Subcategory",
		"version":   "v7",
		"props":     map[string]any{"subcategory": map[string]any{"components": list}},
	})
	return string(buff)
}

func document(head, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head>%s</head><body>%s</body></html>`, head, body)
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[r.URL.Path]++
	if s.failing[r.URL.Path] {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	cookie, _ := r.Cookie("session")
	authenticated := cookie != nil && cookie.Value == "ok"
	head := `<meta name="csrf-token" content="tok-123"><link rel="stylesheet" href="/css/app.css?id=abc123">`

	switch path := r.URL.Path; {
	case path == "/login" && r.Method == http.MethodGet:
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "xsrf%3D1"})
		fmt.Fprint(w, document(head, fmt.Sprintf(`<div id="app" data-page="%s"></div>`, html.EscapeString(`{"version":"v7","props":{}}`))))

	case path == "/login":
		body, _ := io.ReadAll(r.Body)
		var creds map[string]any
		_ = json.Unmarshal(body, &creds)
		if creds["email"] != testEmail || creds["password"] != testPassword || r.Header.Get("X-XSRF-TOKEN") != "xsrf=1" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok"})
		w.Header().Set("Location", "/dashboard")
		w.WriteHeader(http.StatusFound)

	case path == "/components":
		fmt.Fprint(w, document(head, `<div class="grid">
			<a href="/components/application-ui/feedback/alerts">Alerts</a>
			<a href="/components/marketing/sections/heroes">Heroes</a>
		</div>`))

	case path == components.DefaultLanguageEndpoint:
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		s.languages[req["uuid"]] = req["language"]
		fmt.Fprint(w, `{}`)

	case sitePages[path] != nil:
		if !authenticated {
			fmt.Fprint(w, document(head, `<a href="/login">Sign in</a>`))
			return
		}
		fmt.Fprint(w, document(head, fmt.Sprintf(
			`<span>%s</span><div id="app" data-page="%s"></div>`,
			testEmail, html.EscapeString(s.payload(sitePages[path])),
		)))

	case path == "/css/app.css" || path == "/js/app.js" || path == "/img/logos/mark.svg":
		if r.Header.Get("If-None-Match") == assetEtag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", assetEtag)
		fmt.Fprintf(w, "/* %s */", path)

	case path == "/templates":
		fmt.Fprint(w, document(head, fmt.Sprintf(
			`<section id="product-salient"><h2><a href="%s/templates/salient">Salient</a></h2></section>`,
			s.server.URL,
		)))

	case path == "/templates/salient/download":
		if r.Header.Get("If-None-Match") == templateEtag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", templateEtag)
		w.Write([]byte("PK\x03\x04salient"))

	default:
		http.NotFound(w, r)
	}
}

func testConfig(site *fakeSite, outputDir string) Config {
	return Config{
		Email:          testEmail,
		Password:       testPassword,
		BaseURL:        site.server.URL,
		Output:         outputDir,
		Languages:      []string{"html"},
		Components:     "all",
		LanguageSwitch: true,
	}
}

func run(t *testing.T, cfg Config, tel telemetry.API) (Summary, error) {
	t.Helper()
	crawler, err := New(context.Background(), cfg, tel)
	require.NoError(t, err)
	return crawler.Run(context.Background())
}

func listFiles(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(contents)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestRunIsIncremental(t *testing.T) {
	site := newFakeSite(t)
	outputDir := t.TempDir()
	cfg := testConfig(site, outputDir)

	first, err := run(t, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Pages)
	assert.Equal(t, 4, first.Components)
	assert.Equal(t, 4, first.Written)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 3, first.Assets.Fetched)
	firstFiles := listFiles(t, outputDir)

	assert.Equal(t,
		`<div class="p-4">Simple Alert</div>`,
		firstFiles["html/components/application-ui/feedback/alerts/simple_alert.html"],
	)
	assert.Contains(t, firstFiles, "preview/css/app.css")
	assert.Contains(t, firstFiles, "preview/js/app.js")

	second, err := run(t, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, first.Components, second.Skipped)
	assert.Equal(t, 0, second.Assets.Fetched)
	assert.Equal(t, first.Assets.Fetched, second.Assets.NotModified)

	if diff := cmp.Diff(firstFiles, listFiles(t, outputDir)); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunAllOutputs(t *testing.T) {
	site := newFakeSite(t)
	outputDir := t.TempDir()
	cfg := testConfig(site, outputDir)
	cfg.Languages = []string{"html", "react", "alpine"}
	cfg.BuildIndex = true
	cfg.Templates = true
	cfg.Transformers = []string{"addTailwindCss", "changeColor", "convertVue"}
	cfg.Transform.ChangeColorTo = "rose"

	first, err := run(t, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 4*3, first.Written-first.Transformed)
	assert.Equal(t, 4, first.Transformed)
	assert.Equal(t, 1, first.TemplatesDownloaded)
	files := listFiles(t, outputDir)

	react := files["react/components/application-ui/feedback/alerts/with_actions.jsx"]
	assert.Contains(t, react, "export default function AlertsWithActions() {")
	assert.Contains(t, react, "With Actions")

	alpine := files["alpine/components/marketing/sections/heroes/split_hero.html"]
	assert.True(t, strings.HasPrefix(alpine, components.AlpineDisclaimer))
	assert.Contains(t, alpine, `<div class="bg-indigo-600" x-data="{ open: false }">`)

	transformed := files["transformed/components/marketing/sections/heroes/split_hero.html"]
	assert.Contains(t, transformed, "bg-rose-600")
	assert.Contains(t, transformed, `name="viewport"`)
	assert.Contains(t, files["vue/components/marketing/sections/heroes/split_hero.vue"], "open: false,")

	preview := files["preview/components/application-ui/feedback/alerts/index.html"]
	assert.NotContains(t, preview, testEmail)
	assert.Contains(t, preview, redactedUser)
	assert.Contains(t, preview, `content="CONSTANT_TOKEN"`)
	assert.Contains(t, preview, `href="/css/app.css"`)
	assert.Contains(t, files, "preview/components/index.html")

	assert.Equal(t, "PK\x03\x04salient", files["templates/salient.zip"])
	assert.Equal(t, 1, site.Hits("/css/app.css"))
	switches := site.Hits(components.DefaultLanguageEndpoint)
	assert.Equal(t, 4, switches)

	var snapshot map[string]string
	require.NoError(t, json.Unmarshal([]byte(files["assets.json"]), &snapshot))
	assert.Equal(t, templateEtag, snapshot["templates/salient.zip"])
	assert.Equal(t, assetEtag, snapshot["preview/css/app.css"])

	second, err := run(t, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 0, second.TemplatesDownloaded)
	assert.Equal(t, 1, second.TemplatesUnchanged)
	assert.Equal(t, switches, site.Hits(components.DefaultLanguageEndpoint))
}

func TestRunAbortsOnExhaustedRetries(t *testing.T) {
	site := newFakeSite(t)
	site.failing["/components/marketing/sections/heroes"] = true
	outputDir := t.TempDir()
	recorder := &telemetry.Recorder{}

	summary, err := run(t, testConfig(site, outputDir), recorder)
	assert.True(t, errors.Is(err, core.ErrRetriesExhausted))
	assert.Equal(t, core.DefaultAttempts, site.Hits("/components/marketing/sections/heroes"))
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 0, summary.PagesFailed)
	assert.Empty(t, recorder.Broken())
	assert.Equal(t, 0, site.Hits(catalog.DefaultRequiredPage))
	assert.NoFileExists(t, filepath.Join(outputDir, "assets.json"))
}

func TestMissingPageIsNotExhaustion(t *testing.T) {
	site := newFakeSite(t)
	recorder := &telemetry.Recorder{}
	cfg := testConfig(site, t.TempDir())
	crawler, err := New(context.Background(), cfg, recorder)
	require.NoError(t, err)

	// a 404 is returned without retries and only fails its own page
	err = crawler.processPage(context.Background(), catalog.Entry{URL: "/components/marketing/sections/missing"})
	assert.True(t, errors.Is(err, core.ErrUnexpectedStatus))
	assert.False(t, errors.Is(err, core.ErrRetriesExhausted))
}

func TestRunInvalidCredentials(t *testing.T) {
	site := newFakeSite(t)
	cfg := testConfig(site, t.TempDir())
	cfg.Password = "wrong"

	_, err := run(t, cfg, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidCredentials))
	assert.Equal(t, 2, site.TotalHits())
	assert.Equal(t, 2, site.Hits("/login"))
}

func TestRunNotLoggedIn(t *testing.T) {
	site := newFakeSite(t)
	cfg := testConfig(site, t.TempDir())

	crawler, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	crawler.client.Session = core.NewSession()

	err = crawler.processPage(context.Background(), catalog.Entry{URL: "/components/marketing/sections/heroes"})
	assert.True(t, errors.Is(err, components.ErrNotLoggedIn))
}

func TestRunReportsUnknownCategories(t *testing.T) {
	site := newFakeSite(t)
	cfg := testConfig(site, t.TempDir())
	cfg.Components = "aplication-ui"
	recorder := &telemetry.Recorder{}

	summary, err := run(t, cfg, recorder)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Pages)
	assert.Equal(t, []NotFound{{Requested: "aplication-ui", Suggestion: "application-ui"}}, summary.NotFound)
	assert.Equal(t, []string{"crawler:category.not_found"}, recorder.Warnings())

	var out bytes.Buffer
	summary.Render(&out)
	assert.Contains(t, out.String(), "Did you mean")
	assert.Contains(t, out.String(), "application-ui")
}

func TestRunSkipsMissingSnippets(t *testing.T) {
	site := newFakeSite(t)
	cfg := testConfig(site, t.TempDir())
	cfg.Languages = []string{"vue"}
	cfg.LanguageSwitch = false
	cfg.Count = 1
	recorder := &telemetry.Recorder{}

	summary, err := run(t, cfg, recorder)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.SnippetsMissing)
	assert.Equal(t, 0, summary.Written)
	assert.Equal(t, 0, site.Hits(components.DefaultLanguageEndpoint))
	assert.Equal(t, []string{"crawler:snippet.missing", "crawler:snippet.missing"}, recorder.Warnings())
}

func TestValidate(t *testing.T) {
	valid := Config{
		Email:     testEmail,
		Password:  testPassword,
		BaseURL:   DefaultBaseURL,
		Output:    "./output",
		Languages: []string{"html"},
	}
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "missing email", mutate: func(c *Config) { c.Email = "" }},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "tailwindui.com" }},
		{name: "negative count", mutate: func(c *Config) { c.Count = -1 }},
		{name: "unknown transformer", mutate: func(c *Config) { c.Transformers = []string{"sparkle"} }},
		{name: "transformer option", mutate: func(c *Config) { c.Transformers = []string{"stripAlpine"} }},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid
			test.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
		})
	}
}

func TestParseLanguages(t *testing.T) {
	assert.Equal(t, []string{"html"}, ParseLanguages(""))
	assert.Equal(t, []string{"html", "react", "alpine"}, ParseLanguages("HTML, react,,alpine,html"))
}

func TestReplaceTokens(t *testing.T) {
	page := `<meta name="csrf-token" content="a1b2"><input name="_token" value="zz">` +
		`<link href="/css/app.css?id=0f3e"><script src="/js/app.js?id=9a"></script>`
	expected := `<meta name="csrf-token" content="CONSTANT_TOKEN"><input name="_token" value="CONSTANT_TOKEN">` +
		`<link href="/css/app.css"><script src="/js/app.js"></script>`
	assert.Equal(t, expected, replaceTokens(page))
	assert.Equal(t, "hello Licensed User", redact("hello "+testEmail, testEmail))
}

func TestSuggest(t *testing.T) {
	available := []string{"application-ui", "marketing", "ecommerce"}
	names := []string{"aplication-ui", "ecomerce", "zzz"}
	var got []string
	for _, n := range names {
		got = append(got, suggest(n, available))
	}
	assert.Equal(t, []string{"application-ui", "ecommerce", ""}, got)
}
