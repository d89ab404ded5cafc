package core

import (
	"bytes"
	"net/http"
	"sync"
)

// Recorder is an in-memory Sink.  It counts End calls so callers can
// assert the at-most-once rule.
type Recorder struct {
	mu      sync.Mutex
	Headers http.Header
	Code    int
	Body    bytes.Buffer
	Ends    int
}

// NewRecorder returns an empty Recorder with status 200.
func NewRecorder() *Recorder {
	return &Recorder{Headers: http.Header{}, Code: http.StatusOK}
}

func (r *Recorder) SetHeader(key, value string) {
	r.mu.Lock()
	r.Headers.Set(key, value)
	r.mu.Unlock()
}

func (r *Recorder) SetStatus(code int) {
	r.mu.Lock()
	r.Code = code
	r.mu.Unlock()
}

func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.Write(p)
}

func (r *Recorder) End() error {
	r.mu.Lock()
	r.Ends++
	r.mu.Unlock()
	return nil
}

// String returns the body written so far.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

// EndCount returns how many times End reached the recorder.
func (r *Recorder) EndCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Ends
}
