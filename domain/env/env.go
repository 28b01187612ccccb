// Package env provides the Environment aggregate: a declarative description
// of an environment's packages, channels, variables and install prefix.
package env

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/domain/deps"
	"github.com/artpar/envspec/pkg/ordered"
)

// Document keys, in the order they are serialized.
const (
	KeyName         = "name"
	KeyChannels     = "channels"
	KeyDependencies = "dependencies"
	KeyVariables    = "variables"
	KeyPrefix       = "prefix"
)

// ValidKeys are the top-level keys an environment document may carry.
var ValidKeys = []string{KeyName, KeyDependencies, KeyPrefix, KeyChannels, KeyVariables}

// ErrNoSourcePath indicates Save was called on an environment without a file.
var ErrNoSourcePath = errors.New("environment has no source path")

// ErrInvalidField indicates a document value has the wrong shape.
var ErrInvalidField = errors.New("invalid environment field")

// FieldError reports a document key whose value has the wrong shape.
type FieldError struct {
	Key string
	Msg string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %q: %s", e.Key, e.Msg)
}

// Is makes errors.Is(err, ErrInvalidField) hold for any FieldError.
func (e *FieldError) Is(target error) bool { return target == ErrInvalidField }

// Environment is a declarative environment description.
type Environment struct {
	Name         string
	SourcePath   string // origin for Save; never serialized
	Prefix       string
	Channels     []string
	Dependencies *deps.List
	Variables    *ordered.Map[string]
}

// Params holds the inputs of New.
type Params struct {
	Name         string
	Filename     string
	Prefix       string
	Channels     []string
	Dependencies []deps.Entry
	Variables    *ordered.Map[string]
	Normalizer   deps.Normalizer
}

// New creates an environment. Channels are deduplicated keeping the first
// occurrence.
func New(p Params) *Environment {
	var opts []deps.Option
	if p.Normalizer != nil {
		opts = append(opts, deps.WithNormalizer(p.Normalizer))
	}
	return &Environment{
		Name:         p.Name,
		SourcePath:   p.Filename,
		Prefix:       p.Prefix,
		Channels:     Unique(p.Channels),
		Dependencies: deps.New(p.Dependencies, opts...),
		Variables:    p.Variables,
	}
}

// FromDocument builds an environment from a parsed document. Keys outside
// ValidKeys are rejected; callers that tolerate them strip them first.
func FromDocument(doc *document.Document, filename string) (*Environment, error) {
	p := Params{Filename: filename}
	var err error
	doc.Range(func(key string, value any) bool {
		switch key {
		case KeyName:
			p.Name, err = scalarField(key, value)
		case KeyPrefix:
			p.Prefix, err = scalarField(key, value)
		case KeyChannels:
			p.Channels, err = stringList(key, value)
		case KeyDependencies:
			p.Dependencies, err = entries(value)
		case KeyVariables:
			p.Variables, err = variables(value)
		default:
			err = &FieldError{Key: key, Msg: "unknown key"}
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// AddChannels puts channels in front of the existing ones, dropping
// duplicates (first occurrence wins).
func (e *Environment) AddChannels(channels []string) {
	merged := make([]string, 0, len(channels)+len(e.Channels))
	merged = append(merged, channels...)
	merged = append(merged, e.Channels...)
	e.Channels = Unique(merged)
}

// RemoveChannels clears the channel list.
func (e *Environment) RemoveChannels() {
	e.Channels = nil
}

// AddDependency appends a requirement to the dependency list.
func (e *Environment) AddDependency(requirement string) {
	if e.Dependencies == nil {
		e.Dependencies = deps.New(nil)
	}
	e.Dependencies.Add(requirement)
}

// ToDocument returns the minimal document for the environment, with keys in
// the fixed order name, channels, dependencies, variables, prefix.
func (e *Environment) ToDocument() *document.Document {
	d := document.New()
	if e.Name != "" {
		d.Set(KeyName, e.Name)
	}
	if len(e.Channels) > 0 {
		d.Set(KeyChannels, append([]string(nil), e.Channels...))
	}
	if e.Dependencies.Len() > 0 {
		d.Set(KeyDependencies, rawValues(e.Dependencies.Raw()))
	}
	if e.Variables.Len() > 0 {
		d.Set(KeyVariables, e.Variables.Clone())
	}
	if e.Prefix != "" {
		d.Set(KeyPrefix, e.Prefix)
	}
	return d
}

// ToYAML renders the environment as YAML text.
func (e *Environment) ToYAML() (string, error) {
	return document.DumpString(e.ToDocument())
}

// WriteYAML streams the environment as YAML into w.
func (e *Environment) WriteYAML(w io.Writer) error {
	return document.Dump(e.ToDocument(), w)
}

// WriteJSON writes the environment as compact JSON into w.
func (e *Environment) WriteJSON(w io.Writer) error {
	return document.DumpJSON(e.ToDocument(), w, true)
}

// Save writes the environment back to SourcePath. Parent directories are
// not created.
func (e *Environment) Save() error {
	if e.SourcePath == "" {
		return ErrNoSourcePath
	}
	f, err := os.OpenFile(e.SourcePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.SourcePath, err)
	}
	if err := e.WriteYAML(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", e.SourcePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", e.SourcePath, err)
	}
	return nil
}

// Unique returns seq without repeated elements, keeping first occurrences.
// This is a PURE function.
func Unique(seq []string) []string {
	if len(seq) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(seq))
	out := make([]string, 0, len(seq))
	for _, s := range seq {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// rawValues converts entries to document values.
func rawValues(raw []deps.Entry) []any {
	out := make([]any, 0, len(raw))
	for _, entry := range raw {
		switch e := entry.(type) {
		case deps.Requirement:
			out = append(out, string(e))
		case deps.Group:
			g := document.New()
			g.Set(e.Category, append([]string{}, e.Specs...))
			out = append(out, g)
		}
	}
	return out
}

// entries converts a dependencies value into typed entries. Besides the
// document form it accepts []string and []deps.Entry, as passed in loader
// overrides. A mapping entry with several keys becomes one Group per key.
func entries(value any) ([]deps.Entry, error) {
	var list []any
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []deps.Entry:
		for i, entry := range v {
			if r, ok := entry.(deps.Requirement); ok && strings.TrimSpace(string(r)) == "" {
				return nil, emptyEntry(i)
			}
		}
		return append([]deps.Entry(nil), v...), nil
	case []string:
		list = make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
	case []any:
		list = v
	default:
		return nil, &FieldError{Key: KeyDependencies, Msg: fmt.Sprintf("expected a list, got %T", value)}
	}

	out := make([]deps.Entry, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case *document.Document:
			var err error
			v.Range(func(category string, specs any) bool {
				var list []string
				list, err = stringList(KeyDependencies+"."+category, specs)
				if err != nil {
					return false
				}
				out = append(out, deps.Group{Category: category, Specs: list})
				return true
			})
			if err != nil {
				return nil, err
			}
		case deps.Entry:
			if r, ok := v.(deps.Requirement); ok && strings.TrimSpace(string(r)) == "" {
				return nil, emptyEntry(i)
			}
			out = append(out, v)
		case []any:
			return nil, &FieldError{Key: KeyDependencies, Msg: fmt.Sprintf("entry %d: nested lists are not allowed", i)}
		default:
			s, err := scalarField(KeyDependencies, v)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(s) == "" {
				return nil, emptyEntry(i)
			}
			out = append(out, deps.Requirement(s))
		}
	}
	return out, nil
}

func emptyEntry(i int) error {
	return &FieldError{Key: KeyDependencies, Msg: fmt.Sprintf("entry %d is empty", i)}
}

// variables accepts the document mapping, an *ordered.Map[string], or a plain
// map[string]string whose keys are taken in sorted order.
func variables(value any) (*ordered.Map[string], error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *ordered.Map[string]:
		return v.Clone(), nil
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := ordered.New[string]()
		for _, k := range keys {
			out.Set(k, v[k])
		}
		return out, nil
	case *document.Document:
		out := ordered.New[string]()
		var err error
		v.Range(func(k string, item any) bool {
			var s string
			s, err = scalarField(KeyVariables+"."+k, item)
			out.Set(k, s)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, &FieldError{Key: KeyVariables, Msg: fmt.Sprintf("expected a mapping, got %T", value)}
	}
}

// stringList accepts a list of scalars, a single scalar, or null.
func stringList(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalarField(key, item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := scalarField(key, v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

func scalarField(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", &FieldError{Key: key, Msg: fmt.Sprintf("expected a scalar, got %T", value)}
	}
}
