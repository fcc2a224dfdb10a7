package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopedRecorder(t *testing.T) {
	recorder := &Recorder{}
	scoped := NewScopedAPI("crawler", recorder)

	scoped.ReportWarning("snippet.missing", "language", "vue")
	scoped.ReportBroken("page.failed", "url", "/components/x")
	scoped.ReportCount("components", 3)
	scoped.ReportCount("components", 4)

	assert.Equal(t, []string{"crawler:snippet.missing"}, recorder.Warnings())
	assert.Equal(t, []string{"crawler:page.failed"}, recorder.Broken())
	assert.Equal(t, int64(4), recorder.Count("crawler:components"))
	assert.Equal(t, int64(0), recorder.Count("crawler:missing"))
}

func TestNestedScopes(t *testing.T) {
	recorder := &Recorder{}
	scoped := NewScopedAPI("assets", NewScopedAPI("crawler", recorder))

	scoped.ReportWarning("not_found")
	assert.Equal(t, []string{"crawler:assets:not_found"}, recorder.Warnings())
}

func TestMeterAPIForwards(t *testing.T) {
	recorder := &Recorder{}
	api := NewMeterAPI(recorder)

	api.ReportBroken("page.failed")
	api.ReportWarning("snippet.missing")
	api.ReportCount("pages", 2)

	assert.Equal(t, []string{"page.failed"}, recorder.Broken())
	assert.Equal(t, []string{"snippet.missing"}, recorder.Warnings())
	assert.Equal(t, int64(2), recorder.Count("pages"))
}
