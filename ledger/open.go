// Package ledger opens the win ledger selected by config.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	raffle "github.com/Ashenafi-pixel/raffle-wheel"
	"github.com/Ashenafi-pixel/raffle-wheel/config"
	"github.com/Ashenafi-pixel/raffle-wheel/operator"
	"github.com/Ashenafi-pixel/raffle-wheel/platform"
	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

// Open returns the ledger that answers admin queries and the recorder that settled
// spins write to. The recorder is the ledger itself unless an operator callback is
// configured, in which case wins go to both. catalog fills prize details the REST
// table does not store; it may be nil.
func Open(ctx context.Context, cfg *config.Config, catalog *wheel.Catalog) (round.Ledger, round.Recorder, error) {
	l, err := open(ctx, cfg, catalog)
	if err != nil {
		return nil, nil, err
	}
	if cfg.OperatorEndpoint == "" {
		return l, l, nil
	}
	logger.Infof("forwarding wins to operator %s", cfg.OperatorEndpoint)
	return l, round.Multi{l, operator.NewClient(cfg.OperatorEndpoint, cfg.OperatorSecret)}, nil
}

func open(ctx context.Context, cfg *config.Config, catalog *wheel.Catalog) (round.Ledger, error) {
	switch cfg.Recorder {
	case config.RecorderFile, "":
		return round.NewResultsStore(cfg.DataDir), nil
	case config.RecorderPostgres:
		db, err := raffle.GetDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if db == nil {
			return nil, errors.New("DATABASE_URL is not set")
		}
		store := round.NewPGStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.RecorderREST:
		var prizes platform.PrizeLookup
		if catalog != nil {
			prizes = catalog
		}
		return platform.NewClient(cfg.BackendURL, cfg.BackendAPIKey, prizes), nil
	case config.RecorderNone:
		return round.Discard{}, nil
	}
	return nil, fmt.Errorf("unknown recorder %q", cfg.Recorder)
}
