package transform

import (
	"fmt"
	"html"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// alpine transition attributes and the vue <transition> props they map to
var transitionProps = [][2]string{
	{"x-transition:enter", "enter-active-class"},
	{"x-transition:enter-start", "enter-class"},
	{"x-transition:enter-end", "enter-to-class"},
	{"x-transition:leave", "leave-active-class"},
	{"x-transition:leave-start", "leave-class"},
	{"x-transition:leave-end", "leave-to-class"},
}

func wrapTransitions(sel *goquery.Selection) {
	sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		values := map[string]string{}
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if strings.HasPrefix(attr.Key, "x-transition") {
				values[attr.Key] = attr.Val
				continue
			}
			kept = append(kept, attr)
		}
		node.Attr = kept
		if len(values) == 0 {
			return
		}

		var props strings.Builder
		for _, p := range transitionProps {
			fmt.Fprintf(&props, ` %s="%s"`, p[1], html.EscapeString(values[p[0]]))
		}
		s.WrapHtml(fmt.Sprintf("<transition%s></transition>", props.String()))
	})
}

func vueComponent(code string, data []string) string {
	var state strings.Builder
	for _, d := range data {
		fmt.Fprintf(&state, "    %s,\n", d)
	}
	return fmt.Sprintf(`<template>
%s
</template>

<script>
export default {
  data: () => ({
%s  })
}
</script>
`, indent(code, "  "), state.String())
}

func convertVue(opts Options) (Transformer, error) {
	return func(doc *goquery.Document, tc Context) error {
		body := doc.Find("body").Clone()
		body.Find("script").Remove()
		wrapTransitions(body)

		data := collectData(body)
		body.Find("*").Each(func(_ int, s *goquery.Selection) {
			s.RemoveAttr("x-data")
			renameAttr(s.Nodes[0], "x-show", "v-if")
			if src, ok := s.Attr("src"); ok && strings.HasPrefix(src, "/") {
				s.SetAttr("src", absolute(tc.BaseURL, src))
			}
		})

		code, err := bodyHtml(body)
		if err != nil {
			return err
		}

		root := opts.VueOutput
		if root == "" {
			root = filepath.Join(tc.OutputRoot, "vue")
		}
		dir := under(root, path.Dir(tc.Path))
		return writeFile(filepath.Join(dir, path.Base(tc.Path)+".vue"), vueComponent(code, data))
	}, nil
}
