package cli

import (
	"github.com/lazypower/warmth/internal/config"
	"github.com/lazypower/warmth/internal/engine"
	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/store"
	"github.com/m-mizutani/goerr/v2"
)

// openDB opens the configured database for CLI commands.
func openDB(cfg config.Config) (*store.DB, error) {
	opts := store.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		NodeID: cfg.Database.NodeID,
	}
	if opts.Driver == store.DriverSQLite {
		opts.DSN = cfg.Database.Path
		if opts.DSN == "" {
			path, err := store.DefaultDBPath()
			if err != nil {
				return nil, goerr.Wrap(err, "resolve db path")
			}
			opts.DSN = path
		}
	}

	db, err := store.Open(opts)
	if err != nil {
		return nil, goerr.Wrap(err, "open database")
	}
	return db, nil
}

// openEngine loads config and opens an engine on the local database. Commands
// run against it without a server; the caller closes the returned function.
func openEngine() (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(db, cfg.Warmth, engine.WithLogger(logging.Default()))
	return eng, func() {
		eng.Stop()
		db.Close()
	}, nil
}
