package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/artpar/envspec/adapters/metrics"
	"github.com/artpar/envspec/core/loader"
	"github.com/artpar/envspec/domain/env"
	"github.com/rs/zerolog"
)

// SpecService loads, edits and saves environment files.
type SpecService struct {
	loader  *loader.Loader
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewSpecService creates a new spec service.
func NewSpecService(l *loader.Loader, logger zerolog.Logger, m *metrics.Collector) *SpecService {
	return &SpecService{loader: l, logger: logger, metrics: m}
}

// Resolve loads an environment from a file, URL or directory. An empty
// locator searches the working directory and its parents.
func (s *SpecService) Resolve(ctx context.Context, locator string) (*env.Environment, error) {
	if locator == "" {
		locator = "."
	}
	if info, err := os.Stat(locator); err == nil && info.IsDir() {
		return s.loader.FromDirectory(ctx, locator)
	}
	return s.loader.FromSource(ctx, locator)
}

// Save writes e back to its source file.
func (s *SpecService) Save(e *env.Environment) error {
	if err := e.Save(); err != nil {
		return err
	}
	s.metrics.RecordSave()
	s.logger.Info().Str("path", e.SourcePath).Msg("environment saved")
	return nil
}

// AddChannels puts channels in front of the environment's channel list and
// saves it.
func (s *SpecService) AddChannels(ctx context.Context, locator string, channels []string) (*env.Environment, error) {
	return s.edit(ctx, locator, func(e *env.Environment) error {
		e.AddChannels(channels)
		return nil
	})
}

// RemoveChannels clears the environment's channel list and saves it.
func (s *SpecService) RemoveChannels(ctx context.Context, locator string) (*env.Environment, error) {
	return s.edit(ctx, locator, func(e *env.Environment) error {
		e.RemoveChannels()
		return nil
	})
}

// AddDependencies appends requirements and saves the environment.
func (s *SpecService) AddDependencies(ctx context.Context, locator string, requirements []string) (*env.Environment, error) {
	if len(requirements) == 0 {
		return nil, errors.New("no requirements given")
	}
	return s.edit(ctx, locator, func(e *env.Environment) error {
		for _, r := range requirements {
			e.AddDependency(r)
		}
		return nil
	})
}

func (s *SpecService) edit(ctx context.Context, locator string, fn func(*env.Environment) error) (*env.Environment, error) {
	e, err := s.Resolve(ctx, locator)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := s.Save(e); err != nil {
		return nil, fmt.Errorf("save %s: %w", e.SourcePath, err)
	}
	return e, nil
}
