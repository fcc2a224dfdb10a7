package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("uicrawler.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses whitespace and drops non-printable runes.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// GetAnchors returns the anchors of a selection in document order, anchors
// without an href are skipped.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href, ok := Attr(n, "href")
		if !ok {
			continue
		}
		name := CleanText(GetText(n))
		anchors = append(anchors, Anchor{
			Name: name,
			Href: strings.TrimSpace(href),
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", href),
		))
	}

	return anchors
}

func Attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// MaxSearchDepth bounds FirstClassed, documents nested deeper are
// considered to have no match.
const MaxSearchDepth = 64

// FirstClassed walks down the first-child chain starting at `node` and returns
// the first element carrying a non-empty class and no `_style` attribute.
// It returns nil when the chain ends or the depth bound is reached.
func FirstClassed(node *html.Node) *html.Node {
	current := firstElement(node)
	for depth := 0; current != nil && depth < MaxSearchDepth; depth++ {
		class, _ := Attr(current, "class")
		_, styled := Attr(current, "_style")
		if strings.TrimSpace(class) != "" && !styled {
			return current
		}
		current = firstElement(current.FirstChild)
	}
	return nil
}

// firstElement skips text and comment siblings.
func firstElement(node *html.Node) *html.Node {
	for n := node; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}
