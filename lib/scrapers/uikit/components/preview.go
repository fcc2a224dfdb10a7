package components

import (
	"strings"
	"uicrawler/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const AlpineDisclaimer = `<!--
  This example requires Tailwind CSS v2.0+

  The alpine.js code is *NOT* production ready and is included to preview
  possible interactivity
-->
`

// PreviewCode extracts the alpine flavoured markup of a preview document,
// the body trimmed down to the parent of its first classed element.
func PreviewCode(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	code, err := body.Html()
	if err != nil {
		return "", err
	}

	first := body.Children().First()
	if first.Length() > 0 {
		container := htmlutil.FirstClassed(first.Nodes[0])
		if container != nil && container.Parent != nil {
			inner, err := doc.FindNodes(container).Parent().Html()
			if err != nil {
				return "", err
			}
			code = inner
		}
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	return AlpineDisclaimer + code, nil
}
