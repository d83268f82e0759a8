package pipeline

import (
	"net/http"
	"strconv"
	"time"

	"production-tracker/internal/apperr"
)

// Result is what a Stage hands back to the driver: either continue with the
// next stage, or a terminal response that ends the chain.
type Result struct {
	terminal bool
	status   int
	body     any
	err      error
	headers  map[string]string
}

func Continue() Result { return Result{} }

// Respond ends the chain with a successful response.
func Respond(status int, data any, message string) Result {
	return Result{terminal: true, status: status, body: Envelope{Success: true, Data: data, Message: message}}
}

// RespondList ends the chain with a paginated list response.
func RespondList(data any, meta *Meta) Result {
	return Result{terminal: true, status: http.StatusOK, body: Envelope{Success: true, Data: data, Meta: meta}}
}

// Reject ends the chain with the classified failure of err.
func Reject(err error) Result {
	return Result{terminal: true, status: apperr.HTTPStatus(apperr.KindOf(err)), err: err}
}

// WithRetryAfter adds a Retry-After header, rounded up to whole seconds.
func (r Result) WithRetryAfter(d time.Duration) Result {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return r.WithHeader("Retry-After", strconv.Itoa(secs))
}

func (r Result) WithHeader(k, v string) Result {
	h := make(map[string]string, len(r.headers)+1)
	for hk, hv := range r.headers {
		h[hk] = hv
	}
	h[k] = v
	r.headers = h
	return r
}

func (r Result) Terminal() bool { return r.terminal }
func (r Result) Status() int    { return r.status }
func (r Result) Err() error     { return r.err }
