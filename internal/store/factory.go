package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/config"
)

// Open creates and migrates the store named by the config driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var st Store
	switch cfg.Driver {
	case "sqlite", "":
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
