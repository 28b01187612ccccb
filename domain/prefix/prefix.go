// Package prefix provides installed-package value types and pure functions
// that render a materialized environment as dependency entries.
package prefix

import (
	"net/url"
	"sort"
	"strings"

	"github.com/artpar/envspec/domain/deps"
)

// PackageType tags a record's provenance.
type PackageType string

const (
	PackageTypeNone                         PackageType = ""
	PackageTypeNoarchGeneric                PackageType = "noarch_generic"
	PackageTypeNoarchPython                 PackageType = "noarch_python"
	PackageTypeVirtualPythonWheel           PackageType = "virtual_python_wheel"
	PackageTypeVirtualPythonEggManageable   PackageType = "virtual_python_egg_manageable"
	PackageTypeVirtualPythonEggUnmanageable PackageType = "virtual_python_egg_unmanageable"
	PackageTypeShadowPythonEggLink          PackageType = "shadow_python_egg_link"
)

// Valid reports whether t is a known package type.
func (t PackageType) Valid() bool {
	switch t {
	case PackageTypeNone, PackageTypeNoarchGeneric, PackageTypeNoarchPython,
		PackageTypeVirtualPythonWheel, PackageTypeVirtualPythonEggManageable,
		PackageTypeVirtualPythonEggUnmanageable, PackageTypeShadowPythonEggLink:
		return true
	default:
		return false
	}
}

// Record is one installed package.
type Record struct {
	Name        string
	Version     string
	Build       string
	PackageType PackageType
	Channel     string // channel name or URL the package came from
}

// RequestedSpec is a package the user explicitly asked for.
type RequestedSpec struct {
	Name    string
	Version string
}

// String renders the spec as "name" or "name=version".
func (s RequestedSpec) String() string {
	if s.Version == "" {
		return s.Name
	}
	return s.Name + "=" + s.Version
}

// Partition is the result of splitting records by provenance.
type Partition struct {
	Conda []Record
	Pip   []Record
}

// Split groups records into conda-managed and pip-managed sets, each sorted
// by name. Egg-link shadows and unknown types are dropped.
// This is a PURE function.
func Split(records []Record) Partition {
	var p Partition
	for _, r := range records {
		switch r.PackageType {
		case PackageTypeNone, PackageTypeNoarchGeneric, PackageTypeNoarchPython:
			p.Conda = append(p.Conda, r)
		case PackageTypeVirtualPythonWheel, PackageTypeVirtualPythonEggManageable,
			PackageTypeVirtualPythonEggUnmanageable:
			p.Pip = append(p.Pip, r)
		}
	}
	sortByName(p.Conda)
	sortByName(p.Pip)
	return p
}

func sortByName(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
}

// Dependencies renders a partition as dependency entries: conda records as
// "name=version[=build]", followed by one pip group of "name==version".
// This is a PURE function.
func Dependencies(p Partition, noBuilds bool) []deps.Entry {
	out := make([]deps.Entry, 0, len(p.Conda)+1)
	for _, r := range p.Conda {
		if noBuilds {
			out = append(out, deps.Requirement(r.Name+"="+r.Version))
		} else {
			out = append(out, deps.Requirement(r.Name+"="+r.Version+"="+r.Build))
		}
	}
	if len(p.Pip) > 0 {
		specs := make([]string, 0, len(p.Pip))
		for _, r := range p.Pip {
			specs = append(specs, r.Name+"=="+r.Version)
		}
		out = append(out, deps.Group{Category: deps.ForeignCategory, Specs: specs})
	}
	return out
}

// BiasChannels starts from the configured channels and, walking conda
// records in name order, moves each record's channel to the front unless it
// is already listed. The channel of the alphabetically last package that
// adds one ends up first.
// This is a PURE function.
func BiasChannels(configured []string, conda []Record) []string {
	channels := append([]string(nil), configured...)
	for _, r := range conda {
		name := CanonicalChannel(r.Channel)
		if name == "" || contains(channels, name) {
			continue
		}
		channels = append([]string{name}, channels...)
	}
	return channels
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Hosts that serve named channels at their first path segment.
var channelHosts = map[string]bool{
	"conda.anaconda.org": true,
	"anaconda.org":       true,
	"repo.prefix.dev":    true,
}

// Paths under repo.anaconda.com that make up the "defaults" channel.
var defaultChannelPaths = map[string]bool{
	"pkgs/main":  true,
	"pkgs/r":     true,
	"pkgs/msys2": true,
	"pkgs/free":  true,
	"pkgs/pro":   true,
}

var subdirs = map[string]bool{
	"noarch": true, "linux-64": true, "linux-32": true, "linux-aarch64": true,
	"linux-ppc64le": true, "linux-s390x": true, "linux-armv7l": true,
	"osx-64": true, "osx-arm64": true, "win-64": true, "win-32": true, "win-arm64": true,
}

// CanonicalChannel returns the short name of a channel: "conda-forge" for
// "https://conda.anaconda.org/conda-forge/linux-64", "defaults" for the
// repo.anaconda.com main channels, and the URL without its platform subdir
// for anything else.
// This is a PURE function.
func CanonicalChannel(channel string) string {
	channel = strings.TrimSpace(strings.TrimSuffix(channel, "/"))
	if channel == "" {
		return ""
	}
	if !strings.Contains(channel, "://") {
		name := channel
		if i := strings.Index(name, "/"); i >= 0 && subdirs[name[i+1:]] {
			name = name[:i]
		}
		return name
	}

	u, err := url.Parse(channel)
	if err != nil {
		return channel
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if n := len(segments); n > 0 && subdirs[segments[n-1]] {
		segments = segments[:n-1]
	}
	path := strings.Join(segments, "/")

	switch {
	case u.Host == "repo.anaconda.com" && defaultChannelPaths[path]:
		return "defaults"
	case channelHosts[u.Host] && path != "":
		return path
	}

	u.Path = "/" + path
	if path == "" {
		u.Path = ""
	}
	return u.String()
}
