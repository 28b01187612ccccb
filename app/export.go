// Package app contains the application services that tie the environment
// domain to its stores, loader and collaborators.
package app

import (
	"context"
	"fmt"

	"github.com/artpar/envspec/adapters/clock"
	"github.com/artpar/envspec/adapters/metrics"
	"github.com/artpar/envspec/domain/deps"
	"github.com/artpar/envspec/domain/env"
	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/ports"
	"github.com/rs/zerolog"
)

// ExportOptions selects how a prefix is rendered.
type ExportOptions struct {
	Name           string
	Prefix         string
	NoBuilds       bool // omit build strings from conda specs
	IgnoreChannels bool // do not bias channels by package origin
	FromHistory    bool // export requested specs instead of installed records
}

// Mode names the export flavor for logs and metrics.
func (o ExportOptions) Mode() string {
	if o.FromHistory {
		return "history"
	}
	return "full"
}

// ExportConfig holds ExportService dependencies.
type ExportConfig struct {
	Prefixes ports.PrefixStore
	History  ports.HistoryStore
	Channels ports.ChannelSource
	Clock    ports.Clock
	Logger   zerolog.Logger
	Metrics  *metrics.Collector
}

// ExportService reconstructs environments from installed prefixes.
type ExportService struct {
	prefixes ports.PrefixStore
	history  ports.HistoryStore
	channels ports.ChannelSource
	clock    ports.Clock
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// NewExportService creates a new export service.
func NewExportService(cfg ExportConfig) *ExportService {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	return &ExportService{
		prefixes: cfg.Prefixes,
		history:  cfg.History,
		channels: cfg.Channels,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// FromPrefix builds an environment describing what is installed in
// opts.Prefix, or what was explicitly requested there when FromHistory is set.
func (s *ExportService) FromPrefix(ctx context.Context, opts ExportOptions) (*env.Environment, error) {
	start := s.clock.Now()

	vars, err := s.prefixes.EnvVars(ctx, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("read env vars of %s: %w", opts.Prefix, err)
	}
	if vars != nil && vars.Len() == 0 {
		vars = nil
	}
	configured := s.configuredChannels()

	var (
		entries  []deps.Entry
		channels []string
	)
	if opts.FromHistory {
		specs, err := s.history.RequestedSpecs(ctx, opts.Prefix)
		if err != nil {
			return nil, fmt.Errorf("read history of %s: %w", opts.Prefix, err)
		}
		entries = make([]deps.Entry, 0, len(specs))
		for _, spec := range specs {
			entries = append(entries, deps.Requirement(spec.String()))
		}
		channels = configured
	} else {
		records, err := s.prefixes.Records(ctx, opts.Prefix)
		if err != nil {
			return nil, fmt.Errorf("read records of %s: %w", opts.Prefix, err)
		}
		part := prefix.Split(records)
		entries = prefix.Dependencies(part, opts.NoBuilds)
		channels = configured
		if !opts.IgnoreChannels {
			channels = prefix.BiasChannels(configured, part.Conda)
		}
	}

	e := env.New(env.Params{
		Name:         opts.Name,
		Prefix:       opts.Prefix,
		Channels:     channels,
		Dependencies: entries,
		Variables:    vars,
	})

	elapsed := s.clock.Now().Sub(start)
	s.metrics.RecordExport(opts.Mode(), elapsed)
	s.logger.Debug().
		Str("prefix", opts.Prefix).
		Str("mode", opts.Mode()).
		Int("dependencies", e.Dependencies.Len()).
		Dur("elapsed", elapsed).
		Msg("prefix exported")
	return e, nil
}

func (s *ExportService) configuredChannels() []string {
	if s.channels == nil {
		return nil
	}
	return append([]string(nil), s.channels.Channels()...)
}

// StaticChannels is a fixed ports.ChannelSource.
type StaticChannels []string

// Channels returns the list.
func (c StaticChannels) Channels() []string { return c }
