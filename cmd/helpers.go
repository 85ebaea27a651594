package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/db"
	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/logging"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
	"github.com/ziadkadry99/notedraft/internal/schema"
)

// loadConfig loads the config and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `notedraft init` to create a config file", err)
	}
	logging.Init(cfg.LogLevel, verbose)
	return cfg, nil
}

// loadValidator compiles the schema at path, or the embedded default when
// the file does not exist.
func loadValidator(path, asset string) (*schema.Validator, error) {
	data, err := assets.ReadOrDefault(path, asset)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	v, err := schema.Compile(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// openHistory opens the run history database. History is optional: a
// failure is logged and a nil store returned.
func openHistory(cfg *config.Config) (*history.Store, func()) {
	if cfg.HistoryDB == "" {
		return nil, func() {}
	}
	database, err := db.Open(cfg.HistoryDB)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.HistoryDB).Msg("run history disabled")
		return nil, func() {}
	}
	return history.NewStore(database), func() { database.Close() }
}

// describeFailure prints the user-facing explanation of a pipeline error.
func describeFailure(err error) {
	var exh *pipeline.ExhaustedError
	switch {
	case errors.As(err, &exh) && exh.ArtifactErr == nil:
		fmt.Fprintf(os.Stderr, "Could not produce a valid structured note; raw text saved for review at %s\n", exh.ArtifactPath)
	case errors.As(err, &exh):
		fmt.Fprintf(os.Stderr, "Could not produce a valid structured note; saving raw text failed: %v\n", exh.ArtifactErr)
	case errors.Is(err, config.ErrConfiguration):
		fmt.Fprintf(os.Stderr, "Check %s or the NOTEDRAFT_* environment variables.\n", cfgFile)
	}
}
