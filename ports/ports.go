// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher produces content digests.
type Hasher interface {
	// Digest returns a hex-encoded digest of data.
	Digest(data []byte) string
}

// -----------------------------------------------------------------------------
// Transport Port
// -----------------------------------------------------------------------------

// Transport fetches remote documents as decoded text.
type Transport interface {
	// FetchText retrieves the document at url.
	FetchText(ctx context.Context, url string) (string, error)

	// Schemes lists the URL schemes the transport handles.
	Schemes() []string
}

// -----------------------------------------------------------------------------
// Prefix Inventory Ports
// -----------------------------------------------------------------------------

// PrefixStore enumerates the packages installed in a prefix.
type PrefixStore interface {
	// Records returns all installed package records of a prefix.
	Records(ctx context.Context, prefixPath string) ([]prefix.Record, error)

	// EnvVars returns the environment variables recorded for a prefix.
	EnvVars(ctx context.Context, prefixPath string) (*ordered.Map[string], error)

	// PutRecord inserts or replaces a package record.
	PutRecord(ctx context.Context, prefixPath string, r prefix.Record) error

	// SetEnvVar inserts or replaces an environment variable.
	SetEnvVar(ctx context.Context, prefixPath, key, value string) error
}

// HistoryStore keeps the packages explicitly requested for a prefix.
type HistoryStore interface {
	// RequestedSpecs returns the requested specs, latest request per name,
	// in first-request order.
	RequestedSpecs(ctx context.Context, prefixPath string) ([]prefix.RequestedSpec, error)

	// RecordRequest appends a request to the history.
	RecordRequest(ctx context.Context, prefixPath string, spec prefix.RequestedSpec) error
}

// ChannelSource supplies the configured channel list.
type ChannelSource interface {
	Channels() []string
}
