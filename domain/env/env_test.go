package env_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/artpar/envspec/core/document"
	"github.com/artpar/envspec/domain/deps"
	"github.com/artpar/envspec/domain/env"
	"github.com/artpar/envspec/pkg/ordered"
)

func sampleEnv() *env.Environment {
	vars := ordered.New[string]()
	vars.Set("MY_VAR", "1")
	vars.Set("OTHER", "two")

	return env.New(env.Params{
		Name:     "demo",
		Prefix:   "/opt/envs/demo",
		Channels: []string{"conda-forge", "defaults"},
		Dependencies: []deps.Entry{
			deps.Requirement("python=3.11"),
			deps.Requirement("numpy"),
			deps.Group{Category: "pip", Specs: []string{"flask==3.0"}},
		},
		Variables: vars,
	})
}

func TestNew_DedupsChannels(t *testing.T) {
	e := env.New(env.Params{Channels: []string{"a", "b", "a", "c", "b"}})
	if !reflect.DeepEqual(e.Channels, []string{"a", "b", "c"}) {
		t.Errorf("Channels = %v", e.Channels)
	}
}

func TestAddChannels(t *testing.T) {
	e := env.New(env.Params{Channels: []string{"y", "z"}})
	e.AddChannels([]string{"x", "y"})

	want := []string{"x", "y", "z"}
	if !reflect.DeepEqual(e.Channels, want) {
		t.Errorf("Channels = %v, want %v", e.Channels, want)
	}
}

func TestRemoveChannels(t *testing.T) {
	e := sampleEnv()
	e.RemoveChannels()
	if len(e.Channels) != 0 {
		t.Errorf("Channels = %v, want empty", e.Channels)
	}
	if e.ToDocument().Has(env.KeyChannels) {
		t.Error("document still has channels")
	}
}

func TestAddDependency(t *testing.T) {
	e := env.New(env.Params{})
	e.AddDependency("scipy")

	if got := e.Dependencies.Get(deps.PrimaryCategory); !reflect.DeepEqual(got, []string{"scipy"}) {
		t.Errorf("conda = %v, want [scipy]", got)
	}
}

func TestToDocument_KeyOrder(t *testing.T) {
	doc := sampleEnv().ToDocument()
	want := []string{"name", "channels", "dependencies", "variables", "prefix"}
	if !reflect.DeepEqual(doc.Keys(), want) {
		t.Errorf("Keys = %v, want %v", doc.Keys(), want)
	}
}

func TestToDocument_Minimal(t *testing.T) {
	tests := []struct {
		name string
		env  *env.Environment
		want []string
	}{
		{"empty", env.New(env.Params{}), []string{}},
		{"name only", env.New(env.Params{Name: "x"}), []string{"name"}},
		{"prefix only", env.New(env.Params{Prefix: "/p"}), []string{"prefix"}},
		{
			"empty variables dropped",
			env.New(env.Params{Name: "x", Variables: ordered.New[string]()}),
			[]string{"name"},
		},
		{
			"deps only",
			env.New(env.Params{Dependencies: []deps.Entry{deps.Requirement("a")}}),
			[]string{"dependencies"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.env.ToDocument().Keys()
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Keys = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToYAML(t *testing.T) {
	out, err := sampleEnv().ToYAML()
	if err != nil {
		t.Fatalf("ToYAML failed: %v", err)
	}

	want := `name: demo
channels:
  - conda-forge
  - defaults
dependencies:
  - python=3.11
  - numpy
  - pip:
      - flask==3.0
variables:
  MY_VAR: "1"
  OTHER: two
prefix: /opt/envs/demo
`
	if out != want {
		t.Errorf("ToYAML =\n%s\nwant\n%s", out, want)
	}

	again, _ := sampleEnv().ToYAML()
	if again != out {
		t.Error("ToYAML not stable")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	e := env.New(env.Params{Name: "demo", Channels: []string{"c"}})
	if err := e.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if buf.String() != `{"name":"demo","channels":["c"]}` {
		t.Errorf("WriteJSON = %s", buf.String())
	}
}

func TestFromDocument_RoundTrip(t *testing.T) {
	original := sampleEnv()
	text, err := original.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML failed: %v", err)
	}

	doc, err := document.Load(text)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := env.FromDocument(doc, "environment.yml")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}

	if got.Name != original.Name || got.Prefix != original.Prefix {
		t.Errorf("name/prefix = %q/%q", got.Name, got.Prefix)
	}
	if !reflect.DeepEqual(got.Channels, original.Channels) {
		t.Errorf("Channels = %v, want %v", got.Channels, original.Channels)
	}
	if !reflect.DeepEqual(got.Dependencies.Raw(), original.Dependencies.Raw()) {
		t.Errorf("Raw = %#v, want %#v", got.Dependencies.Raw(), original.Dependencies.Raw())
	}
	if !reflect.DeepEqual(got.Variables.Keys(), original.Variables.Keys()) {
		t.Errorf("Variables = %v", got.Variables.Keys())
	}
	if v, _ := got.Variables.Get("MY_VAR"); v != "1" {
		t.Errorf("MY_VAR = %q", v)
	}
	if got.SourcePath != "environment.yml" {
		t.Errorf("SourcePath = %q", got.SourcePath)
	}
}

func TestFromDocument_Scalars(t *testing.T) {
	doc, err := document.Load(`
name: 42
channels: conda-forge
dependencies:
  - 7
  - pip: flask
variables:
  ENABLED: true
`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	e, err := env.FromDocument(doc, "")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}
	if e.Name != "42" {
		t.Errorf("Name = %q", e.Name)
	}
	if !reflect.DeepEqual(e.Channels, []string{"conda-forge"}) {
		t.Errorf("Channels = %v", e.Channels)
	}
	if got := e.Dependencies.Get("pip"); !reflect.DeepEqual(got, []string{"flask"}) {
		t.Errorf("pip = %v", got)
	}
	if v, _ := e.Variables.Get("ENABLED"); v != "true" {
		t.Errorf("ENABLED = %q", v)
	}
}

func TestFromDocument_MultiKeyGroup(t *testing.T) {
	doc, err := document.Load("dependencies:\n  - {pip: [a], cran: [b]}\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e, err := env.FromDocument(doc, "")
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}
	raw := e.Dependencies.Raw()
	if len(raw) != 2 {
		t.Fatalf("Raw = %#v, want two groups", raw)
	}
	if g := raw[1].(deps.Group); g.Category != "cran" {
		t.Errorf("second group = %+v", g)
	}
}

func TestFromDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown key", "bogus: 1\n"},
		{"deps mapping", "dependencies: {a: 1}\n"},
		{"nested list", "dependencies:\n  - [a, b]\n"},
		{"variables list", "variables: [a]\n"},
		{"channel mapping", "channels:\n  - {a: b}\n"},
		{"null dependency", "dependencies:\n  -\n  - numpy\n"},
		{"blank dependency", "dependencies:\n  - \"  \"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := document.Load(tt.text)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			_, err = env.FromDocument(doc, "")
			if !errors.Is(err, env.ErrInvalidField) {
				t.Errorf("err = %v, want ErrInvalidField", err)
			}
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "environment.yml")
	e := sampleEnv()
	e.SourcePath = path

	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want, _ := e.ToYAML()
	if string(data) != want {
		t.Errorf("file =\n%s\nwant\n%s", data, want)
	}

	// Saving a shorter document truncates the file.
	e.Dependencies = deps.New(nil)
	e.Variables = nil
	if err := e.Save(); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "dependencies") {
		t.Errorf("file not truncated:\n%s", data)
	}
}

func TestSave_Errors(t *testing.T) {
	e := env.New(env.Params{Name: "x"})
	if err := e.Save(); !errors.Is(err, env.ErrNoSourcePath) {
		t.Errorf("err = %v, want ErrNoSourcePath", err)
	}

	e.SourcePath = filepath.Join(t.TempDir(), "missing", "environment.yml")
	if err := e.Save(); err == nil {
		t.Error("expected error for missing parent directory")
	} else if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestUnique(t *testing.T) {
	if got := env.Unique([]string{"b", "a", "b"}); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Unique = %v", got)
	}
	if got := env.Unique(nil); got != nil {
		t.Errorf("Unique(nil) = %v", got)
	}
}
