package tools

import "sync"

// CallRecord captures one update_dashboard invocation: the intent, whether or
// not the store was actually updated. The evaluation path replays the last
// recorded query against the reference answer.
type CallRecord struct {
	Query string
	Title string
}

// Recorder is the per-session append-only log of update_dashboard calls.
type Recorder struct {
	mu    sync.Mutex
	calls []CallRecord
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one call.
func (r *Recorder) Record(query, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, CallRecord{Query: query, Title: title})
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallRecord(nil), r.calls...)
}

// LastQuery returns the query of the most recent call, if any.
func (r *Recorder) LastQuery() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return "", false
	}
	return r.calls[len(r.calls)-1].Query, true
}
