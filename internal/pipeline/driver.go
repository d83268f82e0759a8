package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"production-tracker/internal/apperr"
	"production-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Stage is one step of a route's request handling. It inspects or enriches
// the request and returns Continue, or a terminal Result.
type Stage func(c *gin.Context) Result

// Options configure response rendering.
type Options struct {
	// ExposeErrors adds internal error causes to responses. Never in production.
	ExposeErrors bool
}

// Driver runs stage chains and renders their terminal results.
type Driver struct {
	opts Options
}

func NewDriver(opts Options) *Driver {
	return &Driver{opts: opts}
}

var errNoResponse = errors.New("pipeline: chain finished without a terminal result")

// Chain composes stages into one gin handler. The order is fixed at route
// declaration: rate limit, verifier, gates, validation, handler.
func (d *Driver) Chain(stages ...Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, stage := range stages {
			res := stage(c)
			if res.terminal {
				d.Write(c, res)
				return
			}
		}
		d.Write(c, Reject(apperr.Internal(errNoResponse)))
	}
}

// Write renders r, aborts any remaining gin handlers and runs the
// OnFinish hooks registered by earlier stages.
func (d *Driver) Write(c *gin.Context, r Result) {
	for k, v := range r.headers {
		c.Header(k, v)
	}
	if r.err == nil {
		c.AbortWithStatusJSON(r.status, r.body)
	} else {
		c.AbortWithStatusJSON(r.status, d.errorEnvelope(c, r.err))
	}
	runFinish(c, r.status)
}

func (d *Driver) errorEnvelope(c *gin.Context, err error) Envelope {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(err)
	}

	env := Envelope{Success: false, Error: ae.Message, Details: ae.Details}
	if ae.Kind == apperr.KindInternal {
		_ = c.Error(err)
		logger.FromGin(c).Error("internal error", "err", err)
		if d.opts.ExposeErrors && ae.Err != nil {
			env.Details = ae.Err.Error()
		}
	}
	return env
}

// Recovery is the single backstop: a panic anywhere below becomes an
// internal error response instead of a dropped connection.
func (d *Driver) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				d.Write(c, Reject(apperr.Internal(fmt.Errorf("panic: %v", p))))
			}
		}()
		c.Next()
	}
}

// NotFound renders unknown routes in the API envelope.
func (d *Driver) NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		d.Write(c, Reject(apperr.NotFound(fmt.Sprintf("Route %s not found", c.Request.URL.Path))))
	}
}
