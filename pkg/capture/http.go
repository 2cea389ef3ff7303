package capture

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"faultline/pkg/models"
)

// statusRecorder remembers the status code a handler wrote so the
// middleware can inspect it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// MiddlewareConfig controls the net/http middleware. The zero value reports
// panics, answers them with a 500 and ignores non-panic 5xx responses.
type MiddlewareConfig struct {
	// Rethrow re-panics after the event is reported, handing the panic to
	// the server's own recovery instead of answering with a 500 here.
	Rethrow bool
	// Report5xx reports non-panic responses with status >= 500 as http
	// errors.
	Report5xx bool
}

// Middleware reports handler panics as runtime errors and 5xx responses as
// http errors, tagging events with the request URL, route pattern and user
// agent. Panicking handlers get a 500 response; the panic does not
// propagate to the server.
func (c *Capturer) Middleware(next http.Handler) http.Handler {
	return c.MiddlewareWithConfig(MiddlewareConfig{Report5xx: true}, next)
}

// MiddlewareWithConfig is Middleware with explicit panic and 5xx behavior.
func (c *Capturer) MiddlewareWithConfig(cfg MiddlewareConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if rv := recover(); rv != nil {
				c.submit(r.Context(), models.NewErrorPayloadBuilder(models.KindRuntimeError).
					WithName("panic").
					WithMessage(formatRecovered(rv)).
					WithStack(string(debug.Stack())).
					WithURL(r.URL.String()).
					WithRoute(r.Pattern).
					WithUserAgent(r.UserAgent()).
					WithMetadataEntry("method", r.Method))
				c.logger.Errorw("panic recovered",
					"path", r.URL.Path,
					"method", r.Method,
					"panic", rv,
				)
				if cfg.Rethrow {
					panic(rv)
				}
				if !rec.wrote {
					w.WriteHeader(http.StatusInternalServerError)
				}
				return
			}
			if cfg.Report5xx && rec.status >= http.StatusInternalServerError {
				c.submit(r.Context(), models.NewErrorPayloadBuilder(models.KindHTTPError).
					WithName(http.StatusText(rec.status)).
					WithMessage(fmt.Sprintf("%s %s returned %d", r.Method, r.URL.Path, rec.status)).
					WithURL(r.URL.String()).
					WithRoute(r.Pattern).
					WithUserAgent(r.UserAgent()).
					WithMetadataEntry("method", r.Method).
					WithMetadataEntry("status_code", strconv.Itoa(rec.status)))
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

// Transport decorates an http.RoundTripper. Transport failures become
// network errors, 5xx responses become http errors; the caller sees the
// original response and error either way.
type Transport struct {
	next     http.RoundTripper
	capturer *Capturer
}

func (c *Capturer) Transport(next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{next: next, capturer: c}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.capturer.submit(req.Context(), models.NewErrorPayloadBuilder(models.KindNetworkError).
			WithName(errorName(err)).
			WithMessage(err.Error()).
			WithURL(req.URL.String()).
			WithMetadataEntry("method", req.Method))
		return resp, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		t.capturer.submit(req.Context(), models.NewErrorPayloadBuilder(models.KindHTTPError).
			WithName(http.StatusText(resp.StatusCode)).
			WithMessage(fmt.Sprintf("%s %s returned %d", req.Method, req.URL.Path, resp.StatusCode)).
			WithURL(req.URL.String()).
			WithMetadataEntry("method", req.Method).
			WithMetadataEntry("status_code", strconv.Itoa(resp.StatusCode)))
	}
	return resp, err
}
