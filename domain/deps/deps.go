// Package deps provides the dependency list value type and pure functions
// deriving its categorized view.
//
// A list keeps the authored entries (Raw) as the single source of truth.
// The categorized view is recomputed in full from Raw on every change.
package deps

import (
	"regexp"
	"strings"
)

const (
	// PrimaryCategory holds requirements for the environment's own package manager.
	PrimaryCategory = "conda"
	// ForeignCategory holds requirements for the embedded installer.
	ForeignCategory = "pip"
	// ForeignRuntime is the package that provides the embedded installer.
	ForeignRuntime = "pip"
)

// Entry is one authored dependency: a Requirement or a Group.
type Entry interface {
	isEntry()
}

// Requirement is a plain requirement string, e.g. "numpy>=1.20".
type Requirement string

func (Requirement) isEntry() {}

// Group is a single-key mapping entry: {category: [specs...]}.
type Group struct {
	Category string
	Specs    []string
}

func (Group) isEntry() {}

// Normalizer converts an authored requirement into its canonical form.
type Normalizer func(string) string

// List is a dependency list (raw entries plus derived categories).
type List struct {
	raw        []Entry
	normalize  Normalizer
	categories *Categories
}

// Option configures a List.
type Option func(*List)

// WithNormalizer sets the requirement normalization function.
func WithNormalizer(fn Normalizer) Option {
	return func(l *List) {
		if fn != nil {
			l.normalize = fn
		}
	}
}

// New creates a list from raw entries and parses it.
func New(raw []Entry, opts ...Option) *List {
	l := &List{
		raw:       append([]Entry(nil), raw...),
		normalize: NormalizeSpec,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.categories = Parse(l.raw, l.normalize)
	return l
}

// Raw returns a copy of the authored entries.
func (l *List) Raw() []Entry {
	if l == nil {
		return nil
	}
	return append([]Entry(nil), l.raw...)
}

// Len returns the number of raw entries.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.raw)
}

// Categorized returns the derived view.
func (l *List) Categorized() *Categories {
	if l == nil {
		return &Categories{}
	}
	return l.categories
}

// Get returns the requirements of one category.
func (l *List) Get(category string) []string {
	return l.Categorized().Get(category)
}

// Add appends a requirement to the raw entries and re-parses.
// Duplicates are kept.
func (l *List) Add(requirement string) {
	l.raw = append(l.raw, Requirement(requirement))
	l.categories = Parse(l.raw, l.normalize)
}

// Categories is an ordered mapping from category to requirements.
type Categories struct {
	order []string
	specs map[string][]string
}

// Names returns the categories in first-insertion order.
func (c *Categories) Names() []string {
	return append([]string(nil), c.order...)
}

// Has reports whether category is present.
func (c *Categories) Has(category string) bool {
	_, ok := c.specs[category]
	return ok
}

// Get returns a copy of the requirements in category.
func (c *Categories) Get(category string) []string {
	return append([]string(nil), c.specs[category]...)
}

// Len returns the number of categories.
func (c *Categories) Len() int {
	return len(c.order)
}

func (c *Categories) set(category string, specs []string) {
	if c.specs == nil {
		c.specs = make(map[string][]string)
	}
	if _, ok := c.specs[category]; !ok {
		c.order = append(c.order, category)
	}
	c.specs[category] = specs
}

func (c *Categories) delete(category string) {
	if _, ok := c.specs[category]; !ok {
		return
	}
	delete(c.specs, category)
	for i, name := range c.order {
		if name == category {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Parse derives the categorized view from raw entries.
// This is a PURE function.
func Parse(raw []Entry, normalize Normalizer) *Categories {
	c := &Categories{}
	if len(raw) == 0 {
		return c
	}
	if normalize == nil {
		normalize = NormalizeSpec
	}

	c.set(PrimaryCategory, []string{})
	for _, entry := range raw {
		switch e := entry.(type) {
		case Group:
			c.set(e.Category, append([]string(nil), e.Specs...))
		case Requirement:
			c.specs[PrimaryCategory] = append(c.specs[PrimaryCategory], normalize(string(e)))
		}
	}

	if !c.Has(ForeignCategory) {
		return c
	}
	if len(c.specs[ForeignCategory]) == 0 {
		c.delete(ForeignCategory)
		return c
	}
	for _, spec := range c.specs[PrimaryCategory] {
		if SpecName(spec) == ForeignRuntime {
			return c
		}
	}
	c.specs[PrimaryCategory] = append(c.specs[PrimaryCategory], ForeignRuntime)
	return c
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	nameStop   = regexp.MustCompile(`[<>=!~\s\[(@]`)
)

// SpecName returns the lower-cased package name of a requirement, dropping
// any "channel::" prefix and everything from the first version operator,
// bracket or whitespace on.
func SpecName(spec string) string {
	spec = strings.TrimSpace(spec)
	if i := strings.LastIndex(spec, "::"); i >= 0 {
		spec = spec[i+2:]
	}
	if loc := nameStop.FindStringIndex(spec); loc != nil {
		spec = spec[:loc[0]]
	}
	return strings.ToLower(spec)
}

// NormalizeSpec canonicalizes a requirement string:
//
//	"numpy"            -> "numpy"
//	"numpy 1.21"       -> "numpy=1.21"
//	"numpy 1.21 py39"  -> "numpy=1.21=py39"
//	"numpy >= 1.21"    -> "numpy>=1.21"
//	"numpy 1.21.*"     -> "numpy=1.21"
//
// Strings that do not fit these shapes are returned trimmed, with runs of
// whitespace collapsed.
func NormalizeSpec(spec string) string {
	spec = whitespace.ReplaceAllString(strings.TrimSpace(spec), " ")
	fields := strings.Split(spec, " ")
	if len(fields) < 2 || strings.ContainsAny(fields[0], "<>=!~[") {
		return spec
	}

	name, rest := fields[0], fields[1:]
	if strings.ContainsAny(rest[0][:1], "<>=!~") {
		return name + strings.Join(rest, "")
	}
	rest[0] = strings.TrimSuffix(rest[0], ".*")
	if len(rest) <= 2 && rest[0] != "" && !strings.ContainsAny(strings.Join(rest, ""), "<>=!~,|*[]") {
		return name + "=" + strings.Join(rest, "=")
	}
	return spec
}
