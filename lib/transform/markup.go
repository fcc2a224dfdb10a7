package transform

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var colorToken = regexp.MustCompile(`\bindigo\b`)

func changeColor(opts Options) (Transformer, error) {
	if opts.ChangeColorTo == "" {
		return nil, fmt.Errorf("%w: CHANGECOLOR_TO", ErrMissingOption)
	}
	return func(doc *goquery.Document, _ Context) error {
		body := doc.Find("body")
		body.Find("[class]").AddSelection(body.Filter("[class]")).Each(func(_ int, s *goquery.Selection) {
			class, _ := s.Attr("class")
			s.SetAttr("class", colorToken.ReplaceAllString(class, opts.ChangeColorTo))
		})
		return nil
	}, nil
}

func changeLogo(opts Options) (Transformer, error) {
	if opts.ChangeLogoURL == "" {
		return nil, fmt.Errorf("%w: CHANGELOGO_URL", ErrMissingOption)
	}
	return func(doc *goquery.Document, _ Context) error {
		doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
			if strings.Contains(s.AttrOr("src", ""), "/logos/") {
				s.SetAttr("src", opts.ChangeLogoURL)
			}
		})
		return nil
	}, nil
}

func absolute(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	baseUrl, err := url.Parse(base)
	if err != nil || baseUrl.Host == "" {
		return ref
	}
	resolved, err := baseUrl.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}

func prefixSrc(Options) (Transformer, error) {
	return func(doc *goquery.Document, tc Context) error {
		doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
			s.SetAttr("src", absolute(tc.BaseURL, s.AttrOr("src", "")))
		})
		return nil
	}, nil
}

// prefixClass prefixes the utility of a single class token, variants and
// the negative sign stay in front: "sm:-mt-1" -> "sm:-tw-mt-1".
func prefixClass(prefix, token string) string {
	idx := strings.LastIndex(token, ":")
	variants, utility := token[:idx+1], token[idx+1:]
	negative := ""
	if strings.HasPrefix(utility, "-") {
		negative, utility = "-", utility[1:]
	}
	if utility == "" || strings.HasPrefix(utility, prefix) {
		return token
	}
	return variants + negative + prefix + utility
}

func prefixClasses(opts Options) (Transformer, error) {
	if opts.ClassPrefix == "" {
		return nil, fmt.Errorf("%w: PREFIXCLASSES_PREFIX", ErrMissingOption)
	}
	return func(doc *goquery.Document, _ Context) error {
		doc.Find("body [class]").Each(func(_ int, s *goquery.Selection) {
			tokens := strings.Fields(s.AttrOr("class", ""))
			for i, token := range tokens {
				tokens[i] = prefixClass(opts.ClassPrefix, token)
			}
			s.SetAttr("class", strings.Join(tokens, " "))
		})
		return nil
	}, nil
}

func isDirective(key string) bool {
	return strings.HasPrefix(key, "@") ||
		strings.HasPrefix(key, "x-") ||
		strings.HasPrefix(key, ":")
}

// removeDirectives drops alpine attributes and scripts below `sel`.
func removeDirectives(sel *goquery.Selection) {
	sel.Find("script").Remove()
	sel.Find("*").AddSelection(sel).Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if !isDirective(attr.Key) {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})
}

func bodyHtml(sel *goquery.Selection) (string, error) {
	code, err := sel.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(code), nil
}

func stripAlpine(opts Options) (Transformer, error) {
	if opts.StripAlpineOutput == "" {
		return nil, fmt.Errorf("%w: STRIPALPINE_OUTPUT", ErrMissingOption)
	}
	return func(doc *goquery.Document, tc Context) error {
		body := doc.Find("body")
		removeDirectives(body)
		code, err := bodyHtml(body)
		if err != nil {
			return err
		}
		dir := under(opts.StripAlpineOutput, path.Dir(tc.Path))
		return writeFile(filepath.Join(dir, path.Base(tc.Path)+".html"), code)
	}, nil
}

// renameAttr renames an attribute in place keeping its position.
func renameAttr(node *html.Node, from, to string) {
	for i, attr := range node.Attr {
		if attr.Key == from {
			node.Attr[i].Key = to
		}
	}
}
