package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
	"github.com/artpar/envspec/ports"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Inventory is a snapshot of an installed prefix, as imported from a file.
//
//	prefix: /opt/envs/data
//	records:
//	  - {name: python, version: 3.11.4, build: h955ad1f_0, channel: conda-forge}
//	  - {name: requests, version: 2.31.0, package_type: virtual_python_wheel}
//	variables:
//	  MY_VAR: "1"
//	history: [python=3.11, requests]
type Inventory struct {
	Prefix    string               `yaml:"prefix"`
	Records   []InventoryRecord    `yaml:"records"`
	Variables *ordered.Map[string] `yaml:"variables"`
	History   []string             `yaml:"history"`
}

// InventoryRecord is the file form of prefix.Record.
type InventoryRecord struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Build       string `yaml:"build"`
	PackageType string `yaml:"package_type"`
	Channel     string `yaml:"channel"`
}

// ParseInventory decodes and checks an inventory file.
func ParseInventory(r io.Reader) (*Inventory, error) {
	var inv Inventory
	if err := yaml.NewDecoder(r).Decode(&inv); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parse inventory: empty document")
		}
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if inv.Prefix == "" {
		return nil, fmt.Errorf("parse inventory: prefix is required")
	}
	for i, rec := range inv.Records {
		if rec.Name == "" || rec.Version == "" {
			return nil, fmt.Errorf("parse inventory: record %d: name and version are required", i)
		}
		if !prefix.PackageType(rec.PackageType).Valid() {
			return nil, fmt.Errorf("parse inventory: record %s: unknown package_type %q", rec.Name, rec.PackageType)
		}
	}
	return &inv, nil
}

// ParseRequest splits "name" or "name=version" into a RequestedSpec.
func ParseRequest(s string) prefix.RequestedSpec {
	name, version, _ := strings.Cut(strings.TrimSpace(s), "=")
	return prefix.RequestedSpec{Name: name, Version: version}
}

// InventoryService writes inventory snapshots into the prefix stores.
type InventoryService struct {
	prefixes ports.PrefixStore
	history  ports.HistoryStore
	logger   zerolog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(prefixes ports.PrefixStore, history ports.HistoryStore, logger zerolog.Logger) *InventoryService {
	return &InventoryService{prefixes: prefixes, history: history, logger: logger}
}

// Import stores every record, variable and history entry of inv.
func (s *InventoryService) Import(ctx context.Context, inv *Inventory) error {
	for _, rec := range inv.Records {
		r := prefix.Record{
			Name:        rec.Name,
			Version:     rec.Version,
			Build:       rec.Build,
			PackageType: prefix.PackageType(rec.PackageType),
			Channel:     rec.Channel,
		}
		if err := s.prefixes.PutRecord(ctx, inv.Prefix, r); err != nil {
			return fmt.Errorf("store record %s: %w", rec.Name, err)
		}
	}

	var err error
	inv.Variables.Range(func(k, v string) bool {
		err = s.prefixes.SetEnvVar(ctx, inv.Prefix, k, v)
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("store env vars: %w", err)
	}

	for _, h := range inv.History {
		if err := s.history.RecordRequest(ctx, inv.Prefix, ParseRequest(h)); err != nil {
			return fmt.Errorf("store history entry %s: %w", h, err)
		}
	}

	s.logger.Info().
		Str("prefix", inv.Prefix).
		Int("records", len(inv.Records)).
		Int("history", len(inv.History)).
		Msg("inventory imported")
	return nil
}
