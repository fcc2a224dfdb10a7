package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

var wordRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

func capitalize(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// PascalCase joins the alphanumeric words of s, "simple-nav" -> "SimpleNav".
func PascalCase(s string) string {
	var out strings.Builder
	for _, word := range wordRegex.FindAllString(s, -1) {
		out.WriteString(capitalize(word))
	}
	return out.String()
}

// CamelCase is PascalCase with a lowercase first word, "clip-rule" -> "clipRule".
func CamelCase(s string) string {
	words := wordRegex.FindAllString(s, -1)
	if len(words) == 0 {
		return ""
	}
	var out strings.Builder
	out.WriteString(strings.ToLower(words[0]))
	for _, word := range words[1:] {
		out.WriteString(capitalize(word))
	}
	return out.String()
}

// Humanize turns a url slug into a label, "application-ui" -> "Application Ui".
func Humanize(slug string) string {
	words := wordRegex.FindAllString(slug, -1)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}
