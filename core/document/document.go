// Package document round-trips ordered key-value documents between YAML/JSON
// text and in-memory ordered mappings.
//
// Two fidelity modes are provided. Safe mode (Load, Dump) works with plain
// values and *ordered.Map[any] and rejects non-standard tags. Round-trip mode
// (RoundTripLoad, RoundTripDump) keeps the parsed *yaml.Node tree, so key
// order and comments survive a load-then-save cycle.
//
// Style parameters are fixed so repeated dumps are byte-identical.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/artpar/envspec/pkg/ordered"
	"gopkg.in/yaml.v3"
)

// Document is the unit of work of the codec.
type Document = ordered.Map[any]

// New returns an empty document.
func New() *Document {
	return ordered.New[any]()
}

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("malformed document")

// ParseError reports malformed document text. No partial document is
// returned alongside it.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse document: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) hold for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Mode selects the codec fidelity.
type Mode int

const (
	// Safe handles plain values only.
	Safe Mode = iota
	// RoundTrip preserves comments and structure of loaded nodes.
	RoundTrip
)

func (m Mode) String() string {
	if m == RoundTrip {
		return "round-trip"
	}
	return "safe"
}

// codec holds one fixed codec configuration.
type codec struct {
	mode   Mode
	indent int
	// allowed lists the tags accepted on load; nil accepts any tag.
	allowed map[string]bool
}

var (
	roundTripOnce  sync.Once
	roundTripCodec *codec

	safeOnce  sync.Once
	safeCodec *codec
)

func roundTrip() *codec {
	roundTripOnce.Do(func() {
		roundTripCodec = &codec{mode: RoundTrip, indent: 2}
	})
	return roundTripCodec
}

func safe() *codec {
	safeOnce.Do(func() {
		safeCodec = &codec{
			mode:   Safe,
			indent: 2,
			allowed: map[string]bool{
				"!!str": true, "!!int": true, "!!float": true, "!!bool": true,
				"!!null": true, "!!map": true, "!!seq": true, "!!timestamp": true,
				"!!binary": true, "!!merge": true,
			},
		}
	})
	return safeCodec
}

// parse reads text into a node tree. An absent document yields a nil node.
func (c *codec) parse(text string) (*yaml.Node, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ParseError{Line: errorLine(err), Err: err}
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	body := root.Content[0]
	if body.Kind == yaml.ScalarNode && body.Tag == "!!null" {
		return nil, nil
	}
	if c.allowed != nil {
		if err := c.checkTags(body); err != nil {
			return nil, err
		}
	}
	return &root, nil
}

func (c *codec) checkTags(node *yaml.Node) error {
	if node.Kind != yaml.AliasNode && node.Tag != "" && !c.allowed[node.Tag] {
		return &ParseError{Line: node.Line, Err: fmt.Errorf("unsupported tag %s", node.Tag)}
	}
	for _, child := range node.Content {
		if err := c.checkTags(child); err != nil {
			return err
		}
	}
	return nil
}

func (c *codec) encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(c.indent)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return fmt.Errorf("dump %s document: %w", c.mode, err)
	}
	return enc.Close()
}

// Load parses text in safe mode. Empty input returns (nil, nil); a top level
// that is not a mapping is a ParseError.
func Load(text string) (*Document, error) {
	root, err := safe().parse(text)
	if err != nil || root == nil {
		return nil, err
	}
	body := root.Content[0]
	if body.Kind == yaml.AliasNode && body.Alias != nil {
		body = body.Alias
	}
	if body.Kind != yaml.MappingNode {
		return nil, &ParseError{Line: body.Line, Err: errors.New("top level must be a mapping")}
	}
	v, err := ordered.Value(body)
	if err != nil {
		return nil, &ParseError{Line: body.Line, Err: err}
	}
	return v.(*Document), nil
}

// Dump writes doc as YAML into w.
func Dump(doc any, w io.Writer) error {
	return safe().encode(w, doc)
}

// DumpString returns doc rendered as YAML.
func DumpString(doc any) (string, error) {
	var buf bytes.Buffer
	if err := Dump(doc, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DumpJSON writes doc as JSON. Compact output is a single line; otherwise
// the output is indented by two spaces.
func DumpJSON(doc any, w io.Writer, compact bool) error {
	var (
		data []byte
		err  error
	)
	if compact {
		data, err = json.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("dump json document: %w", err)
	}
	if !compact {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}

// RoundTripLoad parses text keeping the node tree. Empty input returns
// (nil, nil).
func RoundTripLoad(text string) (*yaml.Node, error) {
	return roundTrip().parse(text)
}

// RoundTripDump writes a node tree produced by RoundTripLoad into w.
func RoundTripDump(node *yaml.Node, w io.Writer) error {
	return roundTrip().encode(w, node)
}

// RoundTripDumpString returns a node tree rendered as YAML.
func RoundTripDumpString(node *yaml.Node) (string, error) {
	var buf bytes.Buffer
	if err := RoundTripDump(node, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// errorLine pulls the line number out of a yaml.v3 error message, which
// has the form "yaml: line N: ...".
func errorLine(err error) int {
	var line int
	msg := err.Error()
	if i := strings.Index(msg, "line "); i >= 0 {
		fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}
