package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// the site answers a successful login with a redirect, an already
// authenticated session with a conflict
var acceptedLoginStatus = map[int]bool{
	http.StatusFound:    true,
	http.StatusConflict: true,
	http.StatusOK:       true,
}

const PayloadSelector = "#app[data-page]"

// PagePayload returns the application state embedded in the page root.
func PagePayload(doc *goquery.Document) (string, bool) {
	return doc.Find(PayloadSelector).First().Attr("data-page")
}

// PageVersion reads the protocol version out of the embedded payload.
func PageVersion(doc *goquery.Document) string {
	payload, ok := PagePayload(doc)
	if !ok {
		return ""
	}
	var page struct {
		Version json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal([]byte(payload), &page); err != nil || len(page.Version) == 0 {
		return ""
	}
	var version string
	if err := json.Unmarshal(page.Version, &version); err == nil {
		return version
	}
	return strings.Trim(string(page.Version), `"`)
}

func csrfToken(doc *goquery.Document) string {
	if token := doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""); token != "" {
		return token
	}
	return doc.Find(`input[name="_token"]`).AttrOr("value", "")
}

// Login warms the session with the login page and submits the credentials.
// A rejected login is reported as false, errors are reserved for transport failures.
func (c *Client) Login(ctx context.Context, email, password string) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Get(ctx, "/login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login page")
		return false, fmt.Errorf("parse login page: %w", err)
	}

	if version := PageVersion(doc); version != "" {
		c.Session.SetVersion(version)
	}

	payload := map[string]any{
		"email":    email,
		"password": password,
		"remember": false,
	}
	if token := csrfToken(doc); token != "" {
		payload["_token"] = token
	}

	res, err = c.SendJSON(ctx, http.MethodPost, "/login", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post credentials")
		return false, err
	}
	span.SetAttributes(attribute.Int("status", res.Status))

	if !acceptedLoginStatus[res.Status] {
		slog.WarnContext(ctx, "login rejected", "status", res.Status)
		span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
		return false, nil
	}
	return true, nil
}
