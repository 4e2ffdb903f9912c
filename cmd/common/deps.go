// Package common provides shared dependency construction for command
// implementations. Importing it also pulls in the built-in scraper
// plugins, which self-register on import.
package common

import (
	"fmt"

	"github.com/milesbot/milesbot/internal/config"
	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/sources"

	// Built-in scraper plugins register themselves on import.
	_ "github.com/milesbot/milesbot/internal/plugin/livelo"
	_ "github.com/milesbot/milesbot/internal/plugin/smiles"
)

// CommandDeps holds the dependencies every command starts from.
// Use this instead of context.Value for type-safe dependency injection.
type CommandDeps struct {
	Logger   logger.Interface
	Config   *config.Config
	Registry *sources.Registry
}

// NewCommandDeps loads configuration, builds the logger, and opens the
// source registry. Credential validation is left to the commands that
// need it so registry-only commands work without a bot token.
func NewCommandDeps() (CommandDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to create logger: %w", err)
	}

	registry, err := sources.NewRegistry(cfg.Storage.SourcesFile, log)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to open source registry: %w", err)
	}

	return CommandDeps{
		Logger:   log,
		Config:   cfg,
		Registry: registry,
	}, nil
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	if d.Registry == nil {
		return ErrRegistryRequired
	}
	return nil
}
