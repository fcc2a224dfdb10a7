package transform

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	viewportMeta       = `<meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no">`
	DefaultTailwindCSS = "https://cdn.jsdelivr.net/npm/@tailwindcss/ui@latest/dist/tailwind-ui.min.css"
	interStylesheet    = "https://rsms.me/inter/inter.css"
	systemFonts        = `system-ui,-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,"Helvetica Neue",Arial,"Noto Sans",sans-serif,"Apple Color Emoji","Segoe UI Emoji","Segoe UI Symbol","Noto Color Emoji"`
)

func ensureHead(doc *goquery.Document) *goquery.Selection {
	head := doc.Find("head").First()
	if head.Length() == 0 {
		doc.Find("html").First().PrependHtml("<head></head>")
		head = doc.Find("head").First()
	}
	return head
}

func stylesheetMarkup(ref string) string {
	if strings.HasPrefix(strings.TrimSpace(ref), "<") {
		return ref
	}
	return fmt.Sprintf(`<link rel="stylesheet" href="%s">`, ref)
}

func addTailwindCss(opts Options) (Transformer, error) {
	ref := opts.TailwindCSS
	if ref == "" {
		ref = DefaultTailwindCSS
	}
	link := stylesheetMarkup(ref)

	return func(doc *goquery.Document, _ Context) error {
		head := ensureHead(doc)
		if head.Find(`meta[name="viewport"]`).Length() == 0 {
			head.AppendHtml(viewportMeta)
		}
		probe, err := goquery.NewDocumentFromReader(strings.NewReader(link))
		if err != nil {
			return err
		}
		href := probe.Find("link").AttrOr("href", "")
		if href != "" && head.Find("link").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.AttrOr("href", "") == href
		}).Length() > 0 {
			return nil
		}
		head.AppendHtml(link)
		return nil
	}, nil
}

func useInter(Options) (Transformer, error) {
	var style strings.Builder
	style.WriteString("\n<style type=\"text/css\">\n")
	fmt.Fprintf(&style, "html, .font-sans{font-family:\"Inter var\",%s}\n", systemFonts)
	for _, breakpoint := range []string{"sm", "md", "lg", "xl"} {
		fmt.Fprintf(&style, ".%s\\:font-sans{font-family:\"Inter var\",%s}\n", breakpoint, systemFonts)
	}
	style.WriteString("</style>\n")
	fontStyle := style.String()

	return func(doc *goquery.Document, _ Context) error {
		head := ensureHead(doc)
		if head.Find(fmt.Sprintf(`link[href="%s"]`, interStylesheet)).Length() > 0 {
			return nil
		}
		head.AppendHtml(stylesheetMarkup(interStylesheet))
		head.AppendHtml(fontStyle)
		return nil
	}, nil
}
