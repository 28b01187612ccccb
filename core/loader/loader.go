// Package loader resolves environment documents from local paths, directory
// searches, remote URLs and raw text into env.Environment values.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/artpar/envspec/adapters/metrics"
	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/domain/env"
	"github.com/artpar/envspec/ports"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"
)

// DefaultFilenames are searched, in order, in every directory visited by
// FromDirectory.
var DefaultFilenames = []string{"environment.yml", "environment.yaml"}

// ReservedFilenameKey is the override key naming the originating source.
// It sets the environment's SourcePath and is never merged into the document.
const ReservedFilenameKey = "filename"

// WarningHandler receives validation warnings.
type WarningHandler func(Warning)

// Config configures a Loader.
type Config struct {
	// Transport fetches remote locators. Nil disables remote loading.
	Transport ports.Transport
	Logger    zerolog.Logger
	Metrics   *metrics.Collector
	OnWarning WarningHandler
}

// Loader turns environment sources into environments.
type Loader struct {
	transport ports.Transport
	schemes   map[string]bool
	logger    zerolog.Logger
	metrics   *metrics.Collector
	onWarning WarningHandler
}

// New creates a loader.
func New(cfg Config) *Loader {
	l := &Loader{
		transport: cfg.Transport,
		schemes:   make(map[string]bool),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		onWarning: cfg.OnWarning,
	}
	if cfg.Transport != nil {
		for _, s := range cfg.Transport.Schemes() {
			l.schemes[strings.ToLower(s)] = true
		}
	}
	return l
}

// TextOptions carries the context of FromText.
type TextOptions struct {
	// Filename identifies the source in messages and becomes SourcePath.
	Filename string
	// Overrides replace top-level document keys after validation.
	Overrides map[string]any
	// OnWarning receives this call's warnings in addition to Config.OnWarning.
	OnWarning WarningHandler
}

// FromDirectory looks for DefaultFilenames in dir and then in each parent
// directory, returning the first environment that loads.
func (l *Loader) FromDirectory(ctx context.Context, dir string) (*env.Environment, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	for current := abs; ; {
		for _, name := range DefaultFilenames {
			e, err := l.FromSource(ctx, filepath.Join(current, name))
			if err == nil {
				return e, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	l.metrics.RecordLoadError("not_found")
	return nil, &NotFoundError{Path: DefaultFilenames[0]}
}

// FromSource loads a local path or, for a registered scheme, a remote URL.
func (l *Loader) FromSource(ctx context.Context, locator string) (*env.Environment, error) {
	var (
		text   string
		source string
	)
	if l.isRemote(locator) {
		l.logger.Debug().Str("url", locator).Msg("fetching environment file")
		fetched, err := l.transport.FetchText(ctx, locator)
		if err != nil {
			l.metrics.RecordLoadError("transport")
			return nil, fmt.Errorf("fetch %s: %w", locator, err)
		}
		text, source = fetched, "remote"
	} else {
		data, err := os.ReadFile(locator)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &NotFoundError{Path: locator}
			}
			l.metrics.RecordLoadError("io")
			return nil, fmt.Errorf("read %s: %w", locator, err)
		}
		decoded, err := decodeText(data)
		if err != nil {
			l.metrics.RecordLoadError("decode")
			return nil, fmt.Errorf("%s: %w", locator, err)
		}
		text, source = decoded, "file"
	}

	e, err := l.fromText(text, TextOptions{Filename: locator})
	if err != nil {
		return nil, err
	}
	l.metrics.RecordLoad(source)
	return e, nil
}

// FromText parses an environment document.
func (l *Loader) FromText(text string, opts TextOptions) (*env.Environment, error) {
	e, err := l.fromText(text, opts)
	if err != nil {
		return nil, err
	}
	l.metrics.RecordLoad("text")
	return e, nil
}

func (l *Loader) fromText(text string, opts TextOptions) (*env.Environment, error) {
	filename := opts.Filename
	if v, ok := opts.Overrides[ReservedFilenameKey].(string); ok {
		filename = v
	}

	doc, err := document.Load(text)
	if err != nil {
		l.metrics.RecordLoadError("parse")
		if filename != "" {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return nil, err
	}
	if doc == nil {
		l.metrics.RecordLoadError("empty")
		return nil, &EmptyDocumentError{Filename: filename}
	}

	cleaned, warnings := ValidateKeys(doc, filename)
	for _, w := range warnings {
		l.warn(w)
		if opts.OnWarning != nil {
			opts.OnWarning(w)
		}
	}

	keys := make([]string, 0, len(opts.Overrides))
	for k := range opts.Overrides {
		if k != ReservedFilenameKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		cleaned.Set(k, opts.Overrides[k])
	}

	e, err := env.FromDocument(cleaned, filename)
	if err != nil {
		l.metrics.RecordLoadError("invalid")
		if filename != "" {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return nil, err
	}
	return e, nil
}

func (l *Loader) warn(w Warning) {
	l.metrics.RecordWarning(string(w.Kind))
	l.logger.Warn().
		Str("kind", string(w.Kind)).
		Str("filename", w.Filename).
		Strs("keys", w.Keys).
		Msg(w.String())
	if l.onWarning != nil {
		l.onWarning(w)
	}
}

func (l *Loader) isRemote(locator string) bool {
	if l.transport == nil {
		return false
	}
	scheme, _, found := strings.Cut(locator, "://")
	return found && l.schemes[strings.ToLower(scheme)]
}

// decodeText decodes UTF-8, falling back to UTF-16 (BOM-aware, little
// endian when there is no BOM).
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	if len(data)%2 != 0 {
		return "", ErrDecode
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(out), nil
}
