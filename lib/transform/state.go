package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type stateVar struct {
	Name string
	Init string
}

// splitTopLevel splits on commas outside of brackets and quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '{' || r == '[' || r == '(':
			depth++
		case r == '}' || r == ']' || r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// parseState reads the properties of an x-data object literal, methods
// and non-literal expressions are skipped.
func parseState(raw string) []stateVar {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		return nil
	}
	raw = raw[1 : len(raw)-1]

	var vars []stateVar
	for _, part := range splitTopLevel(raw) {
		name, init, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.Trim(strings.TrimSpace(name), `'"`)
		init = strings.TrimSpace(init)
		if name == "" || init == "" || strings.ContainsAny(name, "( ") {
			continue
		}
		vars = append(vars, stateVar{Name: name, Init: init})
	}
	return vars
}

// collectState gathers the x-data properties below `sel`, the first
// declaration of a name wins.
func collectState(sel *goquery.Selection) []stateVar {
	seen := map[string]bool{}
	var out []stateVar
	sel.Find("[x-data]").AddSelection(sel.Filter("[x-data]")).Each(func(_ int, s *goquery.Selection) {
		for _, v := range parseState(s.AttrOr("x-data", "")) {
			if seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			out = append(out, v)
		}
	})
	return out
}

// collectData gathers the distinct x-data object bodies below `sel`.
func collectData(sel *goquery.Selection) []string {
	seen := map[string]bool{}
	var out []string
	sel.Find("[x-data]").AddSelection(sel.Filter("[x-data]")).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.AttrOr("x-data", ""))
		if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
			return
		}
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		if inner == "" || seen[inner] {
			return
		}
		seen[inner] = true
		out = append(out, inner)
	})
	return out
}
