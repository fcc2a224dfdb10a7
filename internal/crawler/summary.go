package crawler

import (
	"fmt"
	"io"
	"time"
	"uicrawler/lib/assetcache"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

const suggestionThreshold = 0.7

type NotFound struct {
	Requested  string
	Suggestion string
}

type Summary struct {
	Pages       int
	PagesFailed int
	Components  int

	Written         int
	Skipped         int
	SnippetsMissing int
	Transformed     int

	Assets assetcache.Stats

	TemplatesDownloaded int
	TemplatesUnchanged  int

	NotFound []NotFound
	Elapsed  time.Duration
}

// suggest finds the closest available category for a requested one.
func suggest(requested string, available []string) string {
	best := ""
	bestScore := suggestionThreshold
	for _, candidate := range available {
		score := matchr.JaroWinkler(requested, candidate, false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

func notFound(unmatched, available []string) []NotFound {
	var out []NotFound
	for _, requested := range unmatched {
		out = append(out, NotFound{
			Requested:  requested,
			Suggestion: suggest(requested, available),
		})
	}
	return out
}

func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"", "Count"})
	t.AppendRows([]table.Row{
		{"Pages", s.Pages},
		{"Pages failed", s.PagesFailed},
		{"Components", s.Components},
		{"Written", s.Written},
		{"Skipped", s.Skipped},
		{"Snippets missing", s.SnippetsMissing},
		{"Transformed", s.Transformed},
		{"Assets fetched", s.Assets.Fetched},
		{"Assets not modified", s.Assets.NotModified},
		{"Assets failed", s.Assets.Failed},
		{"Templates downloaded", s.TemplatesDownloaded},
		{"Templates unchanged", s.TemplatesUnchanged},
	})
	t.AppendFooter(table.Row{"Elapsed", s.Elapsed.Round(time.Millisecond).String()})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(s.NotFound) == 0 {
		return
	}
	nf := table.NewWriter()
	nf.SetOutputMirror(w)
	nf.AppendHeader(table.Row{"Not found", "Did you mean"})
	for _, missing := range s.NotFound {
		nf.AppendRow(table.Row{missing.Requested, missing.Suggestion})
	}
	nf.SetStyle(table.StyleRounded)
	nf.Render()
	fmt.Fprintln(w)
}
