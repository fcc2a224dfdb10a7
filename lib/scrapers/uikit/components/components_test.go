package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"uicrawler/lib/scrapers/uikit/catalog"
	"uicrawler/lib/scrapers/uikit/core"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmail = "me@example.com"

func renderPage(email string, payload string) string {
	return fmt.Sprintf(`<html><body>
<nav aria-label="Breadcrumb"><ol><li><a href="#">Application UI</a></li><li><a href="#">Feedback</a></li><li>Alerts</li></ol></nav>
<span>%s</span>
<div id="app" data-page="%s"></div>
</body></html>`, email, html.EscapeString(payload))
}

// site serves one catalog page whose snippet language is switched per
// component, the way the upstream site keeps it in the session.
type site struct {
	mu        sync.Mutex
	languages map[string]string
	switches  []map[string]string
	pageHits  int
	payload   func(languages map[string]string) string
	email     string
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case DefaultLanguageEndpoint:
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		s.switches = append(s.switches, req)
		if req["uuid"] == "locked" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		s.languages[req["uuid"]] = req["language"]
		w.WriteHeader(http.StatusConflict)
	case "/components/application-ui/feedback/alerts":
		s.pageHits++
		fmt.Fprint(w, renderPage(s.email, s.payload(s.languages)))
	default:
		http.NotFound(w, r)
	}
}

func alertsPayload(languages map[string]string) string {
	snippet := func(id string) string {
		language := languages[id]
		if language == "" {
			language = "html"
		}
		return fmt.Sprintf(`[{"language":%q,"snippet":"<!-- %s:%s -->"}]`, strings.ToUpper(language), id, language)
	}
	return fmt.Sprintf(`{"component":"Components/Subcategory","version":"v1","props":{"subcategory":{"components":[
		{"name":"Simple Alert","uuid":"a1","snippets":%s,"iframeHtml":"<html><body><div class=\"p-4\">a</div></body></html>"},
		{"name":"With Actions","uuid":"a2","snippets":%s,"iframeHtml":""},
		{"name":"Locked","uuid":"locked","snippets":%s}
	]}}}`, snippet("a1"), snippet("a2"), snippet("locked"))
}

func newExtractor(t *testing.T, s *site) Extractor {
	t.Helper()
	if s.languages == nil {
		s.languages = map[string]string{}
	}
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)

	client, err := core.NewClient(context.Background(), core.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return NewExtractor(client, Options{Email: testEmail})
}

var alertsEntry = catalog.Entry{
	URL:         "/components/application-ui/feedback/alerts",
	Category:    "Application Ui",
	Subcategory: "Feedback",
}

func TestExtract(t *testing.T) {
	s := &site{payload: alertsPayload, email: testEmail}
	extractor := newExtractor(t, s)

	page, err := extractor.Extract(context.Background(), alertsEntry)
	require.NoError(t, err)

	expected := []Record{
		{
			Name:          "Simple Alert",
			ID:            "a1",
			Snippets:      []Snippet{{Language: "html", Code: "<!-- a1:html -->"}},
			PreviewMarkup: `<html><body><div class="p-4">a</div></body></html>`,
		},
		{
			Name:     "With Actions",
			ID:       "a2",
			Snippets: []Snippet{{Language: "html", Code: "<!-- a2:html -->"}},
		},
		{
			Name:     "Locked",
			ID:       "locked",
			Snippets: []Snippet{{Language: "html", Code: "<!-- locked:html -->"}},
		},
	}
	if diff := cmp.Diff(expected, page.Components); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, []string{"Application UI", "Feedback", "Alerts"}, page.Breadcrumbs)
	assert.Equal(t, "Application UI", page.Entry.Category)
	assert.Equal(t, "Feedback", page.Entry.Subcategory)
}

func TestExtractNotLoggedIn(t *testing.T) {
	s := &site{payload: alertsPayload, email: "someone-else@example.com"}
	extractor := newExtractor(t, s)

	_, err := extractor.Extract(context.Background(), alertsEntry)
	assert.True(t, errors.Is(err, ErrNotLoggedIn))
}

func TestExtractSchemaDrift(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		count   int
		fails   bool
	}{
		{name: "missing subcategory", payload: `{"props":{}}`},
		{name: "components not a list", payload: `{"props":{"subcategory":{"components":{}}}}`},
		{
			name:    "sections",
			payload: `{"props":{"subcategory":{"sections":[{"components":[{"name":"A","uuid":"1"}]},{"components":[{"name":"B","id":2}]}]}}}`,
			count:   2,
		},
		{name: "malformed", payload: `{"props":`, fails: true},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			payload := test.payload
			s := &site{payload: func(map[string]string) string { return payload }, email: testEmail}
			extractor := newExtractor(t, s)

			page, err := extractor.Extract(context.Background(), alertsEntry)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.Components, test.count)
		})
	}
}

func TestSnippetFor(t *testing.T) {
	s := &site{payload: alertsPayload, email: testEmail}
	extractor := newExtractor(t, s)
	ctx := context.Background()

	page, err := extractor.Extract(ctx, alertsEntry)
	require.NoError(t, err)
	require.Len(t, page.Components, 3)

	code, err := extractor.SnippetFor(ctx, alertsEntry, page.Components[0], "html")
	require.NoError(t, err)
	assert.Equal(t, "<!-- a1:html -->", code)
	assert.Empty(t, s.switches)

	code, err = extractor.SnippetFor(ctx, alertsEntry, page.Components[1], "react")
	require.NoError(t, err)
	assert.Equal(t, "<!-- a2:react -->", code)
	assert.Equal(t, []map[string]string{{"uuid": "a2", "language": "react"}}, s.switches)
	assert.Equal(t, 2, s.pageHits)

	code, err = extractor.SnippetFor(ctx, alertsEntry, page.Components[2], "vue")
	require.NoError(t, err)
	assert.Equal(t, "", code)
	assert.Equal(t, 2, s.pageHits)
}

func TestPreviewCode(t *testing.T) {
	testCases := []struct {
		name     string
		markup   string
		expected string
	}{
		{
			name:     "strips wrappers",
			markup:   `<html><body><div><div><div class="bg-white p-4"><p>hi</p></div></div></div></body></html>`,
			expected: `<div class="bg-white p-4"><p>hi</p></div>`,
		},
		{
			name:     "ignores styled wrappers",
			markup:   `<html><body><div class="x" _style="1"><span class="text-sm">a</span></div></body></html>`,
			expected: `<span class="text-sm">a</span>`,
		},
		{
			name:     "no classed element",
			markup:   `<html><body><div><p>plain</p></div></body></html>`,
			expected: `<div><p>plain</p></div>`,
		},
		{
			name:     "empty body",
			markup:   `<html><body>  </body></html>`,
			expected: "",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			code, err := PreviewCode(test.markup)
			require.NoError(t, err)
			if test.expected == "" {
				assert.Equal(t, "", code)
				return
			}
			assert.Equal(t, AlpineDisclaimer+test.expected, code)
		})
	}
}
