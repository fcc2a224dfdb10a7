package components

import (
	"fmt"
	"strconv"
	"strings"
)

type Snippet struct {
	Language string
	Code     string
}

// Record is a component as embedded in a catalog page.
type Record struct {
	Name          string
	ID            string
	Snippets      []Snippet
	PreviewMarkup string
}

// Snippet returns the code of the first snippet in `language`.
func (r Record) Snippet(language string) (string, bool) {
	language = strings.ToLower(language)
	for _, s := range r.Snippets {
		if s.Language == language {
			return s.Code, true
		}
	}
	return "", false
}

var DefaultKeyPath = []string{"props", "subcategory", "components"}

// errMissingKey marks schema drift, the page is treated as having no
// components.
type errMissingKey struct {
	key string
}

func (e errMissingKey) Error() string {
	return fmt.Sprintf("missing key %q in page payload", e.key)
}

// componentObjects descends `keyPath` to the list of component objects. When
// the last key is absent the sections of the parent object are searched
// instead.
func componentObjects(payload any, keyPath []string) ([]map[string]any, error) {
	current := payload
	for i, key := range keyPath {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, errMissingKey{key: key}
		}
		next, ok := obj[key]
		if !ok && i == len(keyPath)-1 {
			return sectionObjects(obj, key)
		}
		if !ok {
			return nil, errMissingKey{key: key}
		}
		current = next
	}

	list, ok := current.([]any)
	if !ok {
		return nil, errMissingKey{key: keyPath[len(keyPath)-1]}
	}
	return objects(list), nil
}

func sectionObjects(parent map[string]any, key string) ([]map[string]any, error) {
	sections, ok := parent["sections"].([]any)
	if !ok {
		return nil, errMissingKey{key: key}
	}
	var out []map[string]any
	for _, section := range objects(sections) {
		list, ok := section[key].([]any)
		if !ok {
			continue
		}
		out = append(out, objects(list)...)
	}
	return out, nil
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func parseSnippet(obj map[string]any) (Snippet, bool) {
	language := strings.ToLower(stringField(obj, "language"))
	if language == "" {
		return Snippet{}, false
	}
	return Snippet{
		Language: language,
		Code:     stringField(obj, "snippet", "code"),
	}, true
}

func parseRecord(obj map[string]any) Record {
	record := Record{
		Name:          stringField(obj, "name", "title"),
		ID:            stringField(obj, "uuid", "hash", "id"),
		PreviewMarkup: stringField(obj, "iframeHtml"),
	}
	if list, ok := obj["snippets"].([]any); ok {
		for _, item := range objects(list) {
			if s, ok := parseSnippet(item); ok {
				record.Snippets = append(record.Snippets, s)
			}
		}
	}
	if single, ok := obj["snippet"].(map[string]any); ok {
		if s, ok := parseSnippet(single); ok {
			record.Snippets = append(record.Snippets, s)
		}
	}
	return record
}
