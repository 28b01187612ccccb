package document_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/pkg/ordered"
)

func TestLoad_PreservesKeyOrder(t *testing.T) {
	doc, err := document.Load("zeta: 1\nalpha: 2\nmid: 3\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	keys := doc.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("Keys = %v, want %v", keys, want)
	}
}

func TestLoad_NestedMappingsAreOrdered(t *testing.T) {
	doc, err := document.Load(`
dependencies:
  - numpy
  - pip:
      - flask
variables:
  B: "2"
  A: "1"
`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	deps, _ := doc.Get("dependencies")
	list, ok := deps.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("dependencies = %#v, want 2-element list", deps)
	}
	group, ok := list[1].(*document.Document)
	if !ok {
		t.Fatalf("dependencies[1] = %T, want *Document", list[1])
	}
	if !group.Has("pip") {
		t.Error("group missing pip key")
	}

	vars, _ := doc.Get("variables")
	vm := vars.(*document.Document)
	if got := strings.Join(vm.Keys(), ","); got != "B,A" {
		t.Errorf("variables keys = %s, want B,A", got)
	}
}

func TestLoad_Empty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace", "  \n\n"},
		{"comment only", "# nothing here\n"},
		{"explicit null", "~\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := document.Load(tt.text)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if doc != nil {
				t.Errorf("doc = %v, want nil", doc)
			}
		})
	}
}

func TestLoad_EmptyMappingIsNotAbsent(t *testing.T) {
	doc, err := document.Load("{}")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc == nil {
		t.Fatal("doc is nil, want empty mapping")
	}
	if doc.Len() != 0 {
		t.Errorf("Len = %d, want 0", doc.Len())
	}
}

func TestLoad_JSON(t *testing.T) {
	doc, err := document.Load(`{"name": "demo", "channels": ["conda-forge", "defaults"]}`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	name, _ := doc.Get("name")
	if name != "demo" {
		t.Errorf("name = %v, want demo", name)
	}
	channels, _ := doc.Get("channels")
	if len(channels.([]any)) != 2 {
		t.Errorf("channels = %v, want 2 entries", channels)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unterminated flow", "name: [a, b\n"},
		{"bad indentation", "name: x\n  bogus: - y\n"},
		{"custom tag", "name: !python/object foo\n"},
		{"top level sequence", "- a\n- b\n"},
		{"top level scalar", "just text\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := document.Load(tt.text)
			if err == nil {
				t.Fatalf("expected error, got doc %v", doc)
			}
			if !errors.Is(err, document.ErrParse) {
				t.Errorf("error %v does not match ErrParse", err)
			}
			var pe *document.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error %T is not *ParseError", err)
			}
			if doc != nil {
				t.Error("partial document returned with error")
			}
		})
	}
}

func TestDump_FixedStyle(t *testing.T) {
	doc := document.New()
	doc.Set("name", "demo")
	doc.Set("channels", []string{"conda-forge"})
	group := document.New()
	group.Set("pip", []string{"flask"})
	doc.Set("dependencies", []any{"numpy", group})

	out, err := document.DumpString(doc)
	if err != nil {
		t.Fatalf("DumpString failed: %v", err)
	}

	want := `name: demo
channels:
  - conda-forge
dependencies:
  - numpy
  - pip:
      - flask
`
	if out != want {
		t.Errorf("DumpString =\n%s\nwant\n%s", out, want)
	}
}

func TestDump_Stable(t *testing.T) {
	doc, err := document.Load("b: [1, 2]\na: {y: 1, x: 2}\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	first, err := document.DumpString(doc)
	if err != nil {
		t.Fatalf("DumpString failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := document.DumpString(doc)
		if again != first {
			t.Fatalf("dump %d differs:\n%s\nvs\n%s", i, again, first)
		}
	}
	if !strings.HasPrefix(first, "b:") || !strings.Contains(first, "a:\n  y: 1\n  x: 2") {
		t.Errorf("order not preserved:\n%s", first)
	}
}

func TestDump_ToWriter(t *testing.T) {
	doc := document.New()
	doc.Set("name", "x")

	var buf bytes.Buffer
	if err := document.Dump(doc, &buf); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if buf.String() != "name: x\n" {
		t.Errorf("Dump wrote %q", buf.String())
	}
}

func TestDumpJSON(t *testing.T) {
	doc := document.New()
	doc.Set("name", "demo")
	doc.Set("channels", []string{"b", "a"})

	var buf bytes.Buffer
	if err := document.DumpJSON(doc, &buf, true); err != nil {
		t.Fatalf("DumpJSON failed: %v", err)
	}
	want := `{"name":"demo","channels":["b","a"]}`
	if buf.String() != want {
		t.Errorf("DumpJSON = %s, want %s", buf.String(), want)
	}

	buf.Reset()
	if err := document.DumpJSON(doc, &buf, false); err != nil {
		t.Fatalf("DumpJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"name\": \"demo\"") {
		t.Errorf("indented DumpJSON = %s", buf.String())
	}
}

func TestRoundTrip_PreservesComments(t *testing.T) {
	text := `# project environment
name: demo # inline
channels:
  - conda-forge
dependencies:
  - python=3.11
  - pip:
      - flask
`
	node, err := document.RoundTripLoad(text)
	if err != nil {
		t.Fatalf("RoundTripLoad failed: %v", err)
	}

	out, err := document.RoundTripDumpString(node)
	if err != nil {
		t.Fatalf("RoundTripDumpString failed: %v", err)
	}
	if out != text {
		t.Errorf("round trip changed document:\n%s\nwant\n%s", out, text)
	}
}

func TestRoundTrip_AcceptsCustomTags(t *testing.T) {
	node, err := document.RoundTripLoad("value: !custom thing\n")
	if err != nil {
		t.Fatalf("RoundTripLoad failed: %v", err)
	}
	if node == nil {
		t.Fatal("node is nil")
	}
}

func TestOrderedMapIsMappingNode(t *testing.T) {
	m := ordered.New[string]()
	m.Set("k2", "v2")
	m.Set("k1", "v1")

	out, err := document.DumpString(m)
	if err != nil {
		t.Fatalf("DumpString failed: %v", err)
	}
	if out != "k2: v2\nk1: v1\n" {
		t.Errorf("ordered map dumped as %q", out)
	}
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := document.Load("a: 1\n")
			if err != nil {
				t.Errorf("Load failed: %v", err)
				return
			}
			if _, err := document.DumpString(doc); err != nil {
				t.Errorf("DumpString failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
