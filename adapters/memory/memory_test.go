package memory_test

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/artpar/envspec/adapters/memory"
	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/ports"
)

var (
	_ ports.PrefixStore  = (*memory.PrefixStore)(nil)
	_ ports.HistoryStore = (*memory.HistoryStore)(nil)
)

// PrefixStore tests

func TestPrefixStore_PutRecord(t *testing.T) {
	store := memory.NewPrefixStore()
	ctx := context.Background()

	store.PutRecord(ctx, "/opt/a", prefix.Record{Name: "python", Version: "3.11.4", Build: "h0"})
	store.PutRecord(ctx, "/opt/a", prefix.Record{Name: "numpy", Version: "1.26.0", Build: "py311"})
	store.PutRecord(ctx, "/opt/a", prefix.Record{Name: "python", Version: "3.12.0", Build: "h1"})
	store.PutRecord(ctx, "/opt/b", prefix.Record{Name: "zlib", Version: "1.3"})

	records, err := store.Records(ctx, "/opt/a")
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "python" || records[0].Version != "3.12.0" {
		t.Errorf("records[0] = %+v, want replaced python in first position", records[0])
	}
}

func TestPrefixStore_UnknownPrefix(t *testing.T) {
	store := memory.NewPrefixStore()
	ctx := context.Background()

	records, err := store.Records(ctx, "/nowhere")
	if err != nil || len(records) != 0 {
		t.Errorf("Records = %v, %v; want empty", records, err)
	}
	vars, err := store.EnvVars(ctx, "/nowhere")
	if err != nil || vars.Len() != 0 {
		t.Errorf("EnvVars = %v, %v; want empty", vars, err)
	}
}

func TestPrefixStore_EnvVars(t *testing.T) {
	store := memory.NewPrefixStore()
	ctx := context.Background()

	store.SetEnvVar(ctx, "/opt/a", "B", "2")
	store.SetEnvVar(ctx, "/opt/a", "A", "1")

	vars, _ := store.EnvVars(ctx, "/opt/a")
	if !reflect.DeepEqual(vars.Keys(), []string{"B", "A"}) {
		t.Errorf("keys = %v, want [B A]", vars.Keys())
	}

	// The returned map is a copy.
	vars.Set("C", "3")
	again, _ := store.EnvVars(ctx, "/opt/a")
	if again.Has("C") {
		t.Error("mutating the returned map changed the store")
	}
}

// HistoryStore tests

func TestHistoryStore_LatestPerName(t *testing.T) {
	store := memory.NewHistoryStore()
	ctx := context.Background()

	store.RecordRequest(ctx, "/opt/a", prefix.RequestedSpec{Name: "python", Version: "3.11"})
	store.RecordRequest(ctx, "/opt/a", prefix.RequestedSpec{Name: "numpy"})
	store.RecordRequest(ctx, "/opt/a", prefix.RequestedSpec{Name: "python", Version: "3.12"})

	specs, err := store.RequestedSpecs(ctx, "/opt/a")
	if err != nil {
		t.Fatalf("RequestedSpecs failed: %v", err)
	}
	want := []prefix.RequestedSpec{{Name: "python", Version: "3.12"}, {Name: "numpy"}}
	if !reflect.DeepEqual(specs, want) {
		t.Errorf("specs = %v, want %v", specs, want)
	}
}

func TestHistoryStore_Concurrent(t *testing.T) {
	store := memory.NewHistoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RecordRequest(ctx, "/opt/a", prefix.RequestedSpec{Name: "pkg"})
			store.RequestedSpecs(ctx, "/opt/a")
		}()
	}
	wg.Wait()

	specs, _ := store.RequestedSpecs(ctx, "/opt/a")
	if len(specs) != 1 {
		t.Errorf("expected 1 spec, got %d", len(specs))
	}
}
