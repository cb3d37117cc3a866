package pipeline

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shelfworks/catalog-service/internal/errors"
)

// extractUpload buffers the single file field of a multipart request and
// promotes the JSON payload field to the raw body so the body-parse stage
// and BindJSON treat both request shapes the same way. Non-multipart
// requests pass through untouched.
func extractUpload(rc *RequestContext) error {
	mediaType, _, err := mime.ParseMediaType(rc.Request.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil
	}

	if err := rc.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		return errors.Validation("could not parse multipart form")
	}

	file, header, err := rc.Request.FormFile(uploadFieldName)
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if readErr != nil {
			return errors.Internal("could not read uploaded file", readErr)
		}
		if len(data) > maxUploadBytes {
			return errors.Validation("uploaded file is too large")
		}
		rc.Upload = &UploadedFile{
			FieldName:   uploadFieldName,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	} else if err != http.ErrMissingFile {
		return errors.Validation("could not read uploaded file")
	}

	if payload := rc.Request.FormValue(payloadFieldName); payload != "" {
		rc.RawBody = []byte(payload)
	}
	return nil
}

// parseJSONBody reads a JSON request body into RawBody. Bodies already
// populated by the upload stage, and non-JSON content types, are left alone.
func parseJSONBody(rc *RequestContext) error {
	if rc.RawBody != nil || rc.Request.Body == nil {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(rc.Request.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil
	}

	body, err := io.ReadAll(rc.Request.Body)
	if err != nil {
		return errors.Validation("could not read request body")
	}
	rc.RawBody = body
	return nil
}

// corsStage attaches the CORS response headers for allowed origins and
// answers preflight requests directly. Preflights respond 200 rather than
// 204 for the sake of older clients that treat 204 as an error.
func (b *Builder) corsStage() HandlerFunc {
	return func(rc *RequestContext) error {
		origin := rc.Request.Header.Get("Origin")
		if origin != "" && b.originAllowed(origin) {
			h := rc.Header()
			if b.allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}

		if rc.Request.Method == http.MethodOptions {
			rc.Status(http.StatusOK)
			rc.Stop()
		}
		return nil
	}
}

func (b *Builder) originAllowed(origin string) bool {
	if b.allowAll {
		return true
	}
	for _, allowed := range b.origins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// authGate verifies the bearer credential and records the resulting identity
// on the context. Any failure terminates the chain with an unauthorized
// error; later stages never run for an unverified request.
func (b *Builder) authGate() HandlerFunc {
	return func(rc *RequestContext) error {
		header := rc.Request.Header.Get("Authorization")
		if header == "" {
			return errors.Unauthorized("authorization header is required")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return errors.Unauthorized("authorization header must be a bearer token")
		}

		identity, err := b.verify(parts[1])
		if err != nil {
			return errors.Unauthorized("invalid or expired token")
		}

		rc.Identity = identity
		return nil
	}
}
