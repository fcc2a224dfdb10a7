package telemetry

import "sync"

// Recorder keeps every report in memory, it forwards to Inner when set.
type Recorder struct {
	Inner API

	mu       sync.Mutex
	broken   []string
	warnings []string
	counts   map[string]int64
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	r.broken = append(r.broken, id)
	r.mu.Unlock()
	if r.Inner != nil {
		r.Inner.ReportBroken(id, params...)
	}
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	r.warnings = append(r.warnings, id)
	r.mu.Unlock()
	if r.Inner != nil {
		r.Inner.ReportWarning(id, params...)
	}
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mu.Lock()
	if r.counts == nil {
		r.counts = map[string]int64{}
	}
	r.counts[id] = count
	r.mu.Unlock()
	if r.Inner != nil {
		r.Inner.ReportCount(id, count)
	}
}

func (r *Recorder) Broken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.broken...)
}

func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Count returns the last reported value of a counter.
func (r *Recorder) Count(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}
