package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/params"
	"github.com/seojinlee/flipmarket/pkg/api"
	"github.com/seojinlee/flipmarket/pkg/market"
	"github.com/seojinlee/flipmarket/pkg/oracle"
	"github.com/seojinlee/flipmarket/pkg/storage"
	"github.com/seojinlee/flipmarket/pkg/util"
	"github.com/seojinlee/flipmarket/pkg/vault"
)

func main() {
	cfg, err := params.Load("", os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	programID, err := solana.PublicKeyFromBase58(cfg.Chain.ProgramID)
	if err != nil {
		sugar.Fatalw("bad_program_id", "value", cfg.Chain.ProgramID, "err", err)
	}
	feeDest, err := solana.PublicKeyFromBase58(cfg.Market.FeeDest)
	if err != nil {
		sugar.Fatalw("bad_fee_dest", "value", cfg.Market.FeeDest, "err", err)
	}

	// ---- Persistence ----
	store, err := storage.Open(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer store.Close()

	// ---- Ledger + market ----
	ledger := vault.NewLedger()

	m, err := market.InitMarket(programID, feeDest, cfg.Market.BE6, cfg.Market.FeeBps, ledger)
	if err != nil {
		sugar.Fatalw("market_init_failed", "err", err)
	}
	if saved, err := store.LoadMarket(m.Address); err != nil {
		sugar.Fatalw("market_load_failed", "err", err)
	} else if saved != nil {
		m = saved
		sugar.Infow("market_restored", "status", m.Status.String(), "q_yes", m.QYesE6, "q_no", m.QNoE6)
	}

	engine, err := market.NewEngine(m, ledger, util.RealClock{}, sugar, store)
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}

	// Restore persisted positions.
	positions, err := store.LoadAllPositions()
	if err != nil {
		sugar.Fatalw("position_load_failed", "err", err)
	}
	for _, p := range positions {
		if err := engine.RestorePosition(p); err != nil {
			sugar.Warnw("position_restore_skipped", "owner", p.Owner.String(), "err", err)
		}
	}
	sugar.Infow("positions_restored", "count", len(positions))

	// ---- Oracle poller ----
	// The latest fresh feed is shared with the API and the settlement loop
	// through an atomic pointer; a nil means "no feed yet".
	var latestFeed atomic.Pointer[oracle.Feed]
	var reader *oracle.Reader
	if cfg.Chain.OracleFeed != "" {
		feedKey, err := solana.PublicKeyFromBase58(cfg.Chain.OracleFeed)
		if err != nil {
			sugar.Fatalw("bad_oracle_feed", "value", cfg.Chain.OracleFeed, "err", err)
		}
		var owner solana.PublicKey
		if cfg.Chain.OracleProgram != "" {
			if owner, err = solana.PublicKeyFromBase58(cfg.Chain.OracleProgram); err != nil {
				sugar.Fatalw("bad_oracle_program", "value", cfg.Chain.OracleProgram, "err", err)
			}
		}
		reader = oracle.NewReader(cfg.Chain.RPCEndpoint, feedKey, owner)
	} else {
		sugar.Warn("oracle feed not configured; snapshot/settlement unavailable")
	}

	// ---- API server ----
	apiServer := api.NewServer(engine, store)
	apiServer.FeedFn = func() *oracle.Feed { return latestFeed.Load() }
	if cfg.Node.Keeper != "" {
		keeper, err := solana.PublicKeyFromBase58(cfg.Node.Keeper)
		if err != nil {
			sugar.Fatalw("bad_keeper", "value", cfg.Node.Keeper, "err", err)
		}
		apiServer.Keeper = keeper
	}

	engine.OnTrade = func(snap market.TradeSnapshot) {
		apiServer.BroadcastTrade(snap)
	}
	engine.OnOrderExecuted = func(exec market.LimitOrderExecuted) {
		apiServer.BroadcastMarket()
	}

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Main loop: poll oracle, auto-snapshot, auto-settle ----
	ticker := time.NewTicker(cfg.Node.OraclePoll)
	defer ticker.Stop()

	sugar.Infow("node_started",
		"market", m.Address.String(),
		"pool", m.Pool.String(),
		"b_e6", m.B,
		"fee_bps", m.FeeBps)

	for {
		select {
		case <-ctx.Done():
			sugar.Info("shutting down")
			return
		case <-ticker.C:
			if reader == nil {
				continue
			}
			fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			feed, err := reader.Fetch(fctx)
			cancel()
			if err != nil {
				sugar.Warnw("oracle_fetch_failed", "err", err)
				continue
			}
			latestFeed.Store(feed)

			state := engine.Market()
			switch {
			case state.Status == market.Premarket && !state.Snapshotted():
				if err := engine.SnapshotStart(feed); err != nil {
					sugar.Debugw("snapshot_not_taken", "err", err)
				}
			case state.Status == market.Stopped && !state.Settled():
				if err := engine.SettleByOracle(feed, cfg.Market.GeWinsYes); err != nil {
					sugar.Debugw("settle_not_taken", "err", err)
				} else {
					apiServer.BroadcastMarket()
				}
			}
		}
	}
}
