// Package pipeline assembles per-route handler chains. Every registered
// route runs the same fixed stage order (upload extraction, body parsing,
// CORS, auth gate, business handlers, finalizer) with the optional stages
// selected by the route spec. The finalizer is the only writer of the
// response body, so each request produces exactly one JSON response.
package pipeline

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shelfworks/catalog-service/internal/errors"
	"github.com/shelfworks/catalog-service/internal/httputil"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// HandlerFunc is one stage of a chain. Returning an error terminates the
// chain; the finalizer maps the error onto the response. A stage may also
// terminate successfully via rc.Stop().
type HandlerFunc func(rc *RequestContext) error

// VerifyFunc checks a bearer token and returns the verified identity.
type VerifyFunc func(token string) (*Identity, error)

// RouteSpec declares one route. Specs are consumed at registration time and
// the resulting chain never changes afterwards.
type RouteSpec struct {
	Method        string
	Path          string
	RequiresAuth  bool
	AcceptsUpload bool
	Handlers      []HandlerFunc
}

const (
	// uploadFieldName is the single multipart field carrying the file.
	uploadFieldName = "image"
	// payloadFieldName is the multipart field carrying the JSON payload.
	payloadFieldName = "book"

	maxUploadBytes = 10 << 20
)

// Builder registers route specs against a router, layering the fixed stage
// order onto each.
type Builder struct {
	router   *mux.Router
	verify   VerifyFunc
	origins  []string
	allowAll bool
	log      *logger.Logger
}

// NewBuilder creates a builder. verify is required only when a registered
// spec sets RequiresAuth.
func NewBuilder(router *mux.Router, origins []string, verify VerifyFunc, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewDefault("pipeline")
	}
	allowAll := false
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	return &Builder{
		router:   router,
		verify:   verify,
		origins:  origins,
		allowAll: allowAll,
		log:      log,
	}
}

// Register installs the chain for spec. The stage order is fixed and not
// configurable per route.
func (b *Builder) Register(spec RouteSpec) {
	stages := make([]HandlerFunc, 0, len(spec.Handlers)+4)

	if spec.AcceptsUpload {
		stages = append(stages, extractUpload)
	}
	stages = append(stages, parseJSONBody)
	stages = append(stages, b.corsStage())
	if spec.RequiresAuth {
		stages = append(stages, b.authGate())
	}
	stages = append(stages, spec.Handlers...)

	b.router.HandleFunc(spec.Path, b.run(stages)).Methods(spec.Method, http.MethodOptions)
}

// run executes the stages in order and always hands off to the finalizer,
// which performs the single response write. Panics in any stage surface as
// an internal error response rather than a hung connection.
func (b *Builder) run(stages []HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := newContext(w, r, mux.Vars(r))

		var err error
		func() {
			defer func() {
				if p := recover(); p != nil {
					b.log.WithField("path", r.URL.Path).
						WithField("panic", fmt.Sprintf("%v", p)).
						Error("handler panicked")
					err = errors.Internal("internal error", fmt.Errorf("panic: %v", p))
				}
			}()
			for _, stage := range stages {
				if err = stage(rc); err != nil || rc.stopped {
					return
				}
			}
		}()

		b.finalize(w, r, rc, err)
	}
}

// finalize serializes the single JSON response for the request: the pending
// result (an empty object when no handler set one) on success, the mapped
// taxonomy error otherwise.
func (b *Builder) finalize(w http.ResponseWriter, r *http.Request, rc *RequestContext, err error) {
	if err != nil {
		svcErr := errors.GetServiceError(err)
		if svcErr == nil {
			svcErr = errors.Internal("internal error", err)
		}
		if svcErr.HTTPStatus >= http.StatusInternalServerError {
			b.log.WithError(err).
				WithField("method", r.Method).
				WithField("path", r.URL.Path).
				Error("request failed")
		}
		httputil.WriteError(w, svcErr)
		return
	}

	status := rc.status
	if status == 0 {
		status = http.StatusOK
	}
	result := rc.result
	if result == nil {
		result = map[string]interface{}{}
	}
	httputil.WriteJSON(w, status, result)
}
