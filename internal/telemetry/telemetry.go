package telemetry

import "strings"

// API receives the conditions a crawl recovers from along with its running
// counters. Crawl code reports through it instead of logging directly so
// tests can assert on what was reported.
type API interface {
	// ReportBroken reports a unit of work that failed and was skipped
	ReportBroken(id string, params ...any)

	// ReportWarning reports something worth a look that did not stop any work
	ReportWarning(id string, params ...any)

	// ReportCount reports the current value of a counter, values are points
	// in time and must not be summed
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>:".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if parent, ok := inner.(ScopedAPI); ok {
		return ScopedAPI{namespace: parent.namespace + ":" + namespace, inner: parent.inner}
	}
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) id(id string) string {
	var b strings.Builder
	b.WriteString(s.namespace)
	b.WriteByte(':')
	b.WriteString(id)
	return b.String()
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.id(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.id(id), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.id(id), count)
}
