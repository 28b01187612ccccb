package app_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/artpar/envspec/adapters/clock"
	"github.com/artpar/envspec/adapters/memory"
	"github.com/artpar/envspec/adapters/metrics"
	"github.com/artpar/envspec/app"
	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const testPrefix = "/opt/envs/data"

func seededStores(t *testing.T) (*memory.PrefixStore, *memory.HistoryStore) {
	t.Helper()
	ctx := context.Background()
	prefixes := memory.NewPrefixStore()
	history := memory.NewHistoryStore()

	records := []prefix.Record{
		{Name: "zlib", Version: "1.3", Build: "h0", Channel: "https://conda.anaconda.org/conda-forge/linux-64"},
		{Name: "requests", Version: "2.31.0", PackageType: prefix.PackageTypeVirtualPythonWheel},
		{Name: "python", Version: "3.11.4", Build: "h1", Channel: "https://repo.anaconda.com/pkgs/main/linux-64"},
		{Name: "attrs", Version: "23.1.0", PackageType: prefix.PackageTypeVirtualPythonEggManageable},
		{Name: "six", Version: "1.16.0", Build: "pyhd3", PackageType: prefix.PackageTypeNoarchPython, Channel: "bioconda/noarch"},
		{Name: "mypkg", Version: "0.1", PackageType: prefix.PackageTypeShadowPythonEggLink},
	}
	for _, r := range records {
		if err := prefixes.PutRecord(ctx, testPrefix, r); err != nil {
			t.Fatal(err)
		}
	}
	prefixes.SetEnvVar(ctx, testPrefix, "DATA_HOME", "/data")

	history.RecordRequest(ctx, testPrefix, prefix.RequestedSpec{Name: "python", Version: "3.11"})
	history.RecordRequest(ctx, testPrefix, prefix.RequestedSpec{Name: "requests"})
	return prefixes, history
}

func newExportService(t *testing.T, channels ...string) *app.ExportService {
	prefixes, history := seededStores(t)
	return app.NewExportService(app.ExportConfig{
		Prefixes: prefixes,
		History:  history,
		Channels: app.StaticChannels(channels),
		Logger:   zerolog.Nop(),
	})
}

func TestExportService_FromPrefix(t *testing.T) {
	svc := newExportService(t, "defaults")

	e, err := svc.FromPrefix(context.Background(), app.ExportOptions{Name: "data", Prefix: testPrefix})
	if err != nil {
		t.Fatalf("FromPrefix failed: %v", err)
	}

	if e.Name != "data" || e.Prefix != testPrefix {
		t.Errorf("Name, Prefix = %q, %q", e.Name, e.Prefix)
	}
	wantConda := []string{"python=3.11.4=h1", "six=1.16.0=pyhd3", "zlib=1.3=h0", "pip"}
	if got := e.Dependencies.Get("conda"); !reflect.DeepEqual(got, wantConda) {
		t.Errorf("conda = %v, want %v", got, wantConda)
	}
	wantPip := []string{"attrs==23.1.0", "requests==2.31.0"}
	if got := e.Dependencies.Get("pip"); !reflect.DeepEqual(got, wantPip) {
		t.Errorf("pip = %v, want %v", got, wantPip)
	}
	// zlib is the last conda record with a new channel, so conda-forge ends up first.
	wantChannels := []string{"conda-forge", "bioconda", "defaults"}
	if !reflect.DeepEqual(e.Channels, wantChannels) {
		t.Errorf("Channels = %v, want %v", e.Channels, wantChannels)
	}
	if v, _ := e.Variables.Get("DATA_HOME"); v != "/data" {
		t.Errorf("DATA_HOME = %q, want /data", v)
	}
}

func TestExportService_NoBuildsIgnoreChannels(t *testing.T) {
	svc := newExportService(t, "defaults")

	e, err := svc.FromPrefix(context.Background(), app.ExportOptions{
		Prefix:         testPrefix,
		NoBuilds:       true,
		IgnoreChannels: true,
	})
	if err != nil {
		t.Fatalf("FromPrefix failed: %v", err)
	}
	wantConda := []string{"python=3.11.4", "six=1.16.0", "zlib=1.3", "pip"}
	if got := e.Dependencies.Get("conda"); !reflect.DeepEqual(got, wantConda) {
		t.Errorf("conda = %v, want %v", got, wantConda)
	}
	if !reflect.DeepEqual(e.Channels, []string{"defaults"}) {
		t.Errorf("Channels = %v, want [defaults]", e.Channels)
	}
}

func TestExportService_FromHistory(t *testing.T) {
	svc := newExportService(t, "conda-forge", "defaults")

	e, err := svc.FromPrefix(context.Background(), app.ExportOptions{Prefix: testPrefix, FromHistory: true})
	if err != nil {
		t.Fatalf("FromPrefix failed: %v", err)
	}
	if got := e.Dependencies.Get("conda"); !reflect.DeepEqual(got, []string{"python=3.11", "requests"}) {
		t.Errorf("conda = %v", got)
	}
	if e.Dependencies.Categorized().Has("pip") {
		t.Error("history export should not partition pip packages")
	}
	if !reflect.DeepEqual(e.Channels, []string{"conda-forge", "defaults"}) {
		t.Errorf("Channels = %v", e.Channels)
	}
}

func TestExportService_EmptyPrefix(t *testing.T) {
	svc := app.NewExportService(app.ExportConfig{
		Prefixes: memory.NewPrefixStore(),
		History:  memory.NewHistoryStore(),
		Logger:   zerolog.Nop(),
	})

	e, err := svc.FromPrefix(context.Background(), app.ExportOptions{Name: "empty", Prefix: "/nowhere"})
	if err != nil {
		t.Fatalf("FromPrefix failed: %v", err)
	}
	out, err := e.ToYAML()
	if err != nil {
		t.Fatal(err)
	}
	if want := "name: empty\nprefix: /nowhere\n"; out != want {
		t.Errorf("ToYAML = %q, want %q", out, want)
	}
}

type failingStore struct{}

func (failingStore) Records(context.Context, string) ([]prefix.Record, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) EnvVars(context.Context, string) (*ordered.Map[string], error) {
	return nil, nil
}

func (failingStore) PutRecord(context.Context, string, prefix.Record) error { return nil }

func (failingStore) SetEnvVar(context.Context, string, string, string) error { return nil }

func TestExportService_StoreErrorPropagates(t *testing.T) {
	svc := app.NewExportService(app.ExportConfig{
		Prefixes: failingStore{},
		History:  memory.NewHistoryStore(),
		Logger:   zerolog.Nop(),
	})

	_, err := svc.FromPrefix(context.Background(), app.ExportOptions{Prefix: testPrefix})
	if err == nil || err.Error() != "read records of /opt/envs/data: disk on fire" {
		t.Errorf("error = %v", err)
	}
}

func TestExportService_Metrics(t *testing.T) {
	prefixes, history := seededStores(t)
	reg := prometheus.NewRegistry()
	svc := app.NewExportService(app.ExportConfig{
		Prefixes: prefixes,
		History:  history,
		Clock:    clock.NewTicking(time.Unix(0, 0), 10*time.Millisecond),
		Logger:   zerolog.Nop(),
		Metrics:  metrics.NewWithRegistry(reg),
	})

	ctx := context.Background()
	svc.FromPrefix(ctx, app.ExportOptions{Prefix: testPrefix})
	svc.FromPrefix(ctx, app.ExportOptions{Prefix: testPrefix, FromHistory: true})

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		switch f.GetName() {
		case "envspec_exports_total":
			if len(f.GetMetric()) != 2 {
				t.Errorf("exports_total series = %d, want 2", len(f.GetMetric()))
			}
		case "envspec_export_duration_seconds":
			h := f.GetMetric()[0].GetHistogram()
			if h.GetSampleSum() < 0.019 || h.GetSampleSum() > 0.021 {
				t.Errorf("duration sum = %v, want 0.02", h.GetSampleSum())
			}
		}
	}
}
