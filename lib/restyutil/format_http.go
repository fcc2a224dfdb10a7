package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

const redacted = "<REDACTED>"

// credentials never reach a dump file
var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
	"X-Xsrf-Token":  true,
}

var passwordField = regexp.MustCompile(`("password"\s*:\s*)"(?:[^"\\]|\\.)*"`)

// headers are sorted so that dumps of identical requests diff cleanly
func formatHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
				v = redacted
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func redactBody(body string) string {
	return passwordField.ReplaceAllString(body, `$1"`+redacted+`"`)
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<failed to get request body: %s>", err)
	}
	buff, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<failed to read request body: %s>", err)
	}
	return redactBody(string(buff))
}

// formatHttpMessage renders an exchange in the .http dump format, request
// first.
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	fmt.Fprintf(&out, "%s %s\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		formatHeaders(&out, res.Request.RawRequest.Header)
	}
	if body := requestBody(res.Request.RawRequest); body != "" {
		fmt.Fprintf(&out, "\n%s\n", body)
	}

	out.WriteString("\n### response\n\n")
	fmt.Fprintf(&out, "HTTP %d", res.StatusCode())
	if res.RawResponse != nil {
		if location, err := res.RawResponse.Location(); err == nil {
			fmt.Fprintf(&out, " -> %s", location)
		}
	}
	out.WriteString("\n")
	formatHeaders(&out, res.Header())
	if body := res.String(); body != "" {
		fmt.Fprintf(&out, "\n%s\n", body)
	}
	return out.String()
}
