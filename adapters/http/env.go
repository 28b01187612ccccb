package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/artpar/envspec/app"
	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/core/formatter"
	"github.com/artpar/envspec/core/loader"
	"github.com/artpar/envspec/domain/env"
	"github.com/artpar/envspec/pkg/jsonapi"
	"github.com/artpar/envspec/ports"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// MaxDocumentBytes caps the body accepted by Validate.
const MaxDocumentBytes = 1 << 20

// Exporter renders installed prefixes as environments.
type Exporter interface {
	FromPrefix(ctx context.Context, opts app.ExportOptions) (*env.Environment, error)
}

// EnvHandler serves environment export and validation.
type EnvHandler struct {
	exports Exporter
	loader  *loader.Loader
	hasher  ports.Hasher
	formats *formatter.Registry
	logger  zerolog.Logger
}

// EnvHandlerConfig holds EnvHandler dependencies.
type EnvHandlerConfig struct {
	Exports Exporter
	Loader  *loader.Loader
	Hasher  ports.Hasher
	Formats *formatter.Registry // defaults to formatter.DefaultRegistry
	Logger  zerolog.Logger
}

// NewEnvHandler creates a new environment handler.
func NewEnvHandler(cfg EnvHandlerConfig) *EnvHandler {
	if cfg.Formats == nil {
		cfg.Formats = formatter.DefaultRegistry
	}
	return &EnvHandler{
		exports: cfg.Exports,
		loader:  cfg.Loader,
		hasher:  cfg.Hasher,
		formats: cfg.Formats,
		logger:  cfg.Logger,
	}
}

// Export renders the environment installed at ?prefix= in ?format=.
// The ETag is a digest of the rendered body.
func (h *EnvHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := app.ExportOptions{
		Name:   q.Get("name"),
		Prefix: q.Get("prefix"),
	}
	if opts.Prefix == "" {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter("prefix", "required"))
		return
	}

	flags := []struct {
		param string
		dst   *bool
	}{
		{"no_builds", &opts.NoBuilds},
		{"ignore_channels", &opts.IgnoreChannels},
		{"from_history", &opts.FromHistory},
	}
	for _, f := range flags {
		v := q.Get(f.param)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonapi.WriteError(w, jsonapi.ErrInvalidParameter(f.param, "must be a boolean"))
			return
		}
		*f.dst = b
	}

	f, err := h.formats.Lookup(q.Get("format"))
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter("format", err.Error()))
		return
	}

	e, err := h.exports.FromPrefix(r.Context(), opts)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("prefix", opts.Prefix).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("export failed")
		jsonapi.WriteInternalError(w, "export failed")
		return
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, e, formatter.FormatOptions{}); err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	etag := `"` + h.hasher.Digest(buf.Bytes()) + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// ValidationWarning is a warning in a ValidateResponse.
type ValidationWarning struct {
	Kind    string   `json:"kind"`
	Keys    []string `json:"keys,omitempty"`
	Message string   `json:"message"`
}

// ValidateResponse is the body of a successful validation.
type ValidateResponse struct {
	Document json.RawMessage     `json:"document"`
	Warnings []ValidationWarning `json:"warnings"`
}

// Validate loads the request body as an environment document and returns
// the normalized document with any warnings raised while loading it.
func (h *EnvHandler) Validate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonapi.WriteError(w, jsonapi.NewError(http.StatusRequestEntityTooLarge, "too_large", "Document Too Large").
				Detailf("document exceeds %d bytes", MaxDocumentBytes).Build())
			return
		}
		jsonapi.WriteBadRequest(w, "read body: "+err.Error())
		return
	}

	filename := r.Header.Get("X-Filename")
	warnings := []ValidationWarning{}
	e, err := h.loader.FromText(string(body), loader.TextOptions{
		Filename: filename,
		OnWarning: func(warn loader.Warning) {
			warnings = append(warnings, ValidationWarning{
				Kind:    string(warn.Kind),
				Keys:    warn.Keys,
				Message: warn.String(),
			})
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, loader.ErrEmptyDocument):
		jsonapi.WriteError(w, jsonapi.ErrEmptyDocument(err.Error()))
		return
	case errors.Is(err, document.ErrParse):
		jsonapi.WriteError(w, jsonapi.ErrUnparseable(err.Error()))
		return
	case errors.Is(err, env.ErrInvalidField):
		jsonapi.WriteError(w, jsonapi.ErrInvalidDocument(err.Error()))
		return
	default:
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	var doc bytes.Buffer
	if err := document.DumpJSON(e.ToDocument(), &doc, true); err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ValidateResponse{
		Document: json.RawMessage(bytes.TrimSpace(doc.Bytes())),
		Warnings: warnings,
	})
}

// Formats lists the registered output formats.
func (h *EnvHandler) Formats(w http.ResponseWriter, r *http.Request) {
	type format struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ContentType string `json:"content_type"`
	}
	out := []format{}
	for _, name := range h.formats.List() {
		f, ok := h.formats.Get(name)
		if !ok {
			continue
		}
		out = append(out, format{Name: name, Description: f.Description(), ContentType: f.ContentType()})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"formats": out, "default": h.formats.Default().Name()})
}
