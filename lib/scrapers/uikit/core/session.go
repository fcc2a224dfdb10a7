package core

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Session is the cookie set and protocol version shared by every request
// of a single run.
type Session struct {
	cookies map[string]string
	version string
}

func NewSession() *Session {
	return &Session{cookies: map[string]string{}}
}

// Merge records the cookies of a response, the last value for a name wins.
// Values are stored url-decoded.
func (s *Session) Merge(cookies []*http.Cookie) {
	for _, c := range cookies {
		value, err := url.QueryUnescape(c.Value)
		if err != nil {
			value = c.Value
		}
		s.cookies[c.Name] = value
	}
}

func (s *Session) Get(name string) string {
	return s.cookies[name]
}

func (s *Session) Len() int {
	return len(s.cookies)
}

// Header renders the session as the value of a single Cookie header.
func (s *Session) Header() string {
	names := make([]string, 0, len(s.cookies))
	for name := range s.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + s.cookies[name]
	}
	return strings.Join(pairs, "; ")
}

func (s *Session) SetVersion(version string) {
	s.version = version
}

func (s *Session) Version() string {
	return s.version
}
