package pipeline

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shelfworks/catalog-service/internal/errors"
)

// UploadedFile holds a file extracted from a multipart request, buffered in
// memory for the duration of the chain.
type UploadedFile struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

// Identity is the verified subject of a bearer credential. It is derived
// from the token on every request and never persisted.
type Identity struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RequestContext is the per-request state threaded through a handler chain.
// It is owned exclusively by the chain executing the request and discarded
// after the finalizer runs.
type RequestContext struct {
	Request    *http.Request
	RawBody    []byte
	PathParams map[string]string
	Upload     *UploadedFile
	Identity   *Identity

	header  http.Header
	status  int
	result  interface{}
	stopped bool
}

func newContext(w http.ResponseWriter, r *http.Request, pathParams map[string]string) *RequestContext {
	return &RequestContext{
		Request:    r,
		PathParams: pathParams,
		header:     w.Header(),
	}
}

// PathParam returns a path parameter captured by the route pattern.
func (rc *RequestContext) PathParam(name string) string {
	return rc.PathParams[name]
}

// Query returns a query-string parameter.
func (rc *RequestContext) Query(name string) string {
	return rc.Request.URL.Query().Get(name)
}

// Header exposes the response headers so stages can attach them before the
// finalizer writes the body.
func (rc *RequestContext) Header() http.Header {
	return rc.header
}

// BindJSON decodes the parsed body into v. It fails with a validation error
// when no JSON payload was supplied or the payload does not decode.
func (rc *RequestContext) BindJSON(v interface{}) error {
	if len(rc.RawBody) == 0 {
		return errors.Validation("request body is required")
	}
	if err := json.Unmarshal(rc.RawBody, v); err != nil {
		return errors.Validation("request body is not valid JSON")
	}
	return nil
}

// Result records the pending response payload serialized by the finalizer.
func (rc *RequestContext) Result(v interface{}) {
	rc.result = v
}

// Status records the response status emitted by the finalizer. The zero
// value means 200.
func (rc *RequestContext) Status(code int) {
	rc.status = code
}

// Stop ends the chain after the current stage; the finalizer still runs and
// serializes whatever result and status have been recorded.
func (rc *RequestContext) Stop() {
	rc.stopped = true
}
