package transform

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"uicrawler/lib/output"
	"uicrawler/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	styleAttr       = regexp.MustCompile(`style="([^"]*)"`)
	styleDecl       = regexp.MustCompile(`\s*([\w-]+)\s*:\s*([^;]+)`)
	atDirective     = regexp.MustCompile(` @([^"=\s]*)=`)
	xDirective      = regexp.MustCompile(` x-([^\s"=>]*)`)
	colonDirective  = regexp.MustCompile(` :([\w.:-]+)=`)
	htmlComment     = regexp.MustCompile(`<!--\s*([\s\S]*?)\s*-->`)
	tabindexAttr    = regexp.MustCompile(`tabindex="([^"]*)"`)
	renamedAttr     = regexp.MustCompile(`(\s)(class|for|datetime|clip-rule|fill-rule|stroke-linecap|stroke-linejoin|stroke-width|stroke-miterlimit|autocomplete)=`)
	directiveSuffix = regexp.MustCompile(`[.:]`)
)

var jsxAttrNames = map[string]string{
	"class":             "className",
	"for":               "htmlFor",
	"datetime":          "dateTime",
	"clip-rule":         "clipRule",
	"fill-rule":         "fillRule",
	"stroke-linecap":    "strokeLinecap",
	"stroke-linejoin":   "strokeLinejoin",
	"stroke-width":      "strokeWidth",
	"stroke-miterlimit": "strokeMiterlimit",
	"autocomplete":      "autoComplete",
}

func todoMarker(kind, name string) string {
	return fmt.Sprintf(" data-todo-%s-%s", kind, directiveSuffix.ReplaceAllString(name, "-"))
}

// toJSX rewrites rendered markup into JSX, alpine directives become
// data-todo markers for a human to port.
func toJSX(code, baseUrl string) string {
	code = styleAttr.ReplaceAllStringFunc(code, func(attr string) string {
		styles := styleAttr.FindStringSubmatch(attr)[1]
		var props []string
		for _, m := range styleDecl.FindAllStringSubmatch(styles, -1) {
			props = append(props, fmt.Sprintf(`%s: "%s"`, textutil.CamelCase(m[1]), strings.TrimSpace(m[2])))
		}
		return fmt.Sprintf("style={{%s}}", strings.Join(props, ", "))
	})
	code = atDirective.ReplaceAllStringFunc(code, func(m string) string {
		return todoMarker("at", atDirective.FindStringSubmatch(m)[1]) + "="
	})
	code = xDirective.ReplaceAllStringFunc(code, func(m string) string {
		return todoMarker("x", xDirective.FindStringSubmatch(m)[1])
	})
	code = colonDirective.ReplaceAllStringFunc(code, func(m string) string {
		return todoMarker("colon", colonDirective.FindStringSubmatch(m)[1]) + "="
	})
	code = htmlComment.ReplaceAllString(code, "{/* $1 */}")
	code = tabindexAttr.ReplaceAllString(code, "tabIndex={$1}")
	code = renamedAttr.ReplaceAllStringFunc(code, func(m string) string {
		sub := renamedAttr.FindStringSubmatch(m)
		return sub[1] + jsxAttrNames[sub[2]] + "="
	})
	code = strings.ReplaceAll(code, `href="#"`, `href="/"`)
	if baseUrl != "" {
		code = strings.ReplaceAll(code, `src="/`, fmt.Sprintf(`src="%s/`, strings.TrimSuffix(baseUrl, "/")))
	}
	return strings.TrimSpace(code)
}

func indent(code, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func reactComponent(name, code string, state []stateVar) string {
	var out strings.Builder
	if len(state) > 0 {
		out.WriteString("import { useState } from 'react'\n\n")
	}
	fmt.Fprintf(&out, "export default function %s() {\n", name)
	for _, v := range state {
		fmt.Fprintf(&out, "  const [%s, set%s] = useState(%s)\n", v.Name, textutil.PascalCase(v.Name), v.Init)
	}
	if len(state) > 0 {
		out.WriteString("\n")
	}
	out.WriteString("  return (\n    <>\n")
	out.WriteString(indent(code, "      "))
	out.WriteString("\n    </>\n  )\n}\n")
	return out.String()
}

func reactShell(head string) string {
	return fmt.Sprintf(`<html>
<head>
  %s
</head>
<body>
  <div id="root"></div>
  <script type="module" src="./index.jsx"></script>
</body>
</html>
`, strings.TrimSpace(head))
}

func convertReact(opts Options) (Transformer, error) {
	return func(doc *goquery.Document, tc Context) error {
		body := doc.Find("body").Clone()
		state := collectState(body)
		body.Find("script").Remove()

		code, err := bodyHtml(body)
		if err != nil {
			return err
		}
		segments := strings.Split(strings.Trim(tc.Path, "/"), "/")
		component := reactComponent(output.ComponentName(segments), toJSX(code, tc.BaseURL), state)

		root := opts.ReactOutput
		if root == "" {
			root = filepath.Join(tc.OutputRoot, "react-components")
		}
		dir := under(root, tc.Path)
		err = writeFile(filepath.Join(dir, "index.jsx"), component)
		if err != nil {
			return err
		}
		head, err := doc.Find("head").Html()
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(dir, "index.html"), reactShell(head))
	}, nil
}
