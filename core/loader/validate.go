package loader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/domain/deps"
	"github.com/artpar/envspec/domain/env"
)

// WarningKind classifies a validation warning.
type WarningKind string

const (
	// WarnInvalidSection reports unknown top-level keys that were dropped.
	WarnInvalidSection WarningKind = "invalid_section"
	// WarnMissingPip reports a pip group without pip in the conda list.
	WarnMissingPip WarningKind = "missing_pip"
)

// Warning is a non-fatal validation finding. The document it refers to has
// already been corrected.
type Warning struct {
	Kind     WarningKind
	Filename string
	Keys     []string
}

// String returns a human-readable description.
func (w Warning) String() string {
	switch w.Kind {
	case WarnInvalidSection:
		noun, verb := "section", "is"
		if len(w.Keys) != 1 {
			noun, verb = "sections", "are"
		}
		return fmt.Sprintf("EnvironmentSectionNotValid: the following %s on %q %s invalid and will be ignored:\n  - %s",
			noun, w.Filename, verb, strings.Join(w.Keys, "\n  - "))
	case WarnMissingPip:
		return "pip-installed dependencies are listed but pip itself is not a conda dependency; " +
			"the wrong pip may install them into the wrong place. " +
			"Adding pip to the dependencies; please list it explicitly."
	default:
		return string(w.Kind)
	}
}

var validKeys = func() map[string]bool {
	m := make(map[string]bool, len(env.ValidKeys))
	for _, k := range env.ValidKeys {
		m[k] = true
	}
	return m
}()

var depSplit = regexp.MustCompile(`[<>~\s=]`)

// isPipSpec reports whether a plain dependency names pip, optionally behind
// a channel prefix.
func isPipSpec(dep string) bool {
	head := depSplit.Split(dep, 2)[0]
	for _, part := range strings.Split(head, "::") {
		if part == deps.ForeignRuntime {
			return true
		}
	}
	return false
}

// ValidateKeys returns a copy of doc restricted to the known top-level keys,
// with pip added as the first dependency when a pip group is present but pip
// is not listed. The input document is not modified.
func ValidateKeys(doc *document.Document, filename string) (*document.Document, []Warning) {
	cleaned := doc.Clone()
	var warnings []Warning

	var invalid []string
	for _, key := range doc.Keys() {
		if !validKeys[key] {
			invalid = append(invalid, key)
			cleaned.Delete(key)
		}
	}
	if len(invalid) > 0 {
		warnings = append(warnings, Warning{Kind: WarnInvalidSection, Filename: filename, Keys: invalid})
	}

	value, _ := cleaned.Get(env.KeyDependencies)
	list, ok := value.([]any)
	if !ok {
		return cleaned, warnings
	}

	listsPip := false
	for _, dep := range list {
		if _, isGroup := dep.(*document.Document); isGroup {
			continue
		}
		if isPipSpec(fmt.Sprint(dep)) {
			listsPip = true
			break
		}
	}
	if listsPip {
		return cleaned, warnings
	}

	for _, dep := range list {
		group, isGroup := dep.(*document.Document)
		if !isGroup || !group.Has(deps.ForeignCategory) {
			continue
		}
		fixed := make([]any, 0, len(list)+1)
		fixed = append(fixed, deps.ForeignRuntime)
		fixed = append(fixed, list...)
		cleaned.Set(env.KeyDependencies, fixed)
		warnings = append(warnings, Warning{Kind: WarnMissingPip, Filename: filename})
		break
	}
	return cleaned, warnings
}
