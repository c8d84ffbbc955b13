package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/otcdesk/params"
	"github.com/uhyunpark/otcdesk/pkg/api"
	"github.com/uhyunpark/otcdesk/pkg/chain"
	"github.com/uhyunpark/otcdesk/pkg/chat"
	"github.com/uhyunpark/otcdesk/pkg/market"
	"github.com/uhyunpark/otcdesk/pkg/notify"
	"github.com/uhyunpark/otcdesk/pkg/order"
	"github.com/uhyunpark/otcdesk/pkg/settings"
	"github.com/uhyunpark/otcdesk/pkg/storage"
	"github.com/uhyunpark/otcdesk/pkg/util"
	"github.com/uhyunpark/otcdesk/pkg/wallet"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Wallet ----
	w, err := wallet.FromConfig(cfg.Wallet, sugar)
	if err != nil {
		sugar.Fatalw("wallet_init_failed", "err", err)
	}
	if addr, ok := w.From(); ok {
		sugar.Infow("wallet_loaded", "address", addr.Hex(), "connected", w.Session().Connected)
	} else {
		sugar.Warnw("wallet_no_key", "hint", "set WALLET_PRIVATE_KEY or WALLET_KEYSTORE_PATH")
	}

	// ---- Chain ----
	if !common.IsHexAddress(cfg.Chain.ContractAddress) {
		sugar.Fatalw("invalid_contract_address", "address", cfg.Chain.ContractAddress)
	}
	client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		sugar.Fatalw("rpc_dial_failed", "url", cfg.Chain.RPCURL, "err", err)
	}
	defer client.Close()

	var chainID *big.Int
	if cfg.Chain.ChainID != 0 {
		chainID = big.NewInt(cfg.Chain.ChainID)
	}

	prefs := settings.NewStore()
	wire := order.WireFormat{
		AmountDecimals: cfg.Desk.AmountDecimals,
		PriceDecimals:  cfg.Desk.PriceDecimals,
	}

	gateway, err := chain.NewGateway(chain.Config{
		Contract:     common.HexToAddress(cfg.Chain.ContractAddress),
		ChainID:      chainID,
		GasLimit:     cfg.Chain.GasLimit,
		PollInterval: cfg.Chain.PollInterval,
		Wire:         wire,
		Gas:          prefs,
	}, client, w, sugar)
	if err != nil {
		sugar.Fatalw("gateway_init_failed", "err", err)
	}

	// ---- Journal ----
	var audit storage.Appender = storage.NopAppender{}
	if cfg.Storage.AuditFile != "" {
		fa, err := storage.NewFileAudit(cfg.Storage.AuditFile)
		if err != nil {
			sugar.Warnw("audit_log_disabled", "path", cfg.Storage.AuditFile, "err", err)
		} else {
			defer fa.Close()
			audit = fa
		}
	}
	journal, err := storage.OpenJournal(cfg.Storage.DataDir, audit, sugar)
	if err != nil {
		sugar.Fatalw("journal_open_failed", "dir", cfg.Storage.DataDir, "err", err)
	}
	defer journal.Close()

	// ---- Workflow ----
	hub := api.NewHub(sugar)
	notifier := notify.Multi{
		notify.NewLog(sugar),
		notify.Gated{Next: hub, Alerts: prefs},
	}
	workflow := order.NewWorkflow(order.Config{
		Symbol: cfg.Desk.Symbol,
		Wire:   wire,
	}, w, gateway, notifier, sugar)
	workflow.Observe(journal.Record)
	workflow.Observe(hub.PublishState)

	// ---- API Server ----
	apiServer := api.NewServer(ctx, api.Deps{
		Symbol:   cfg.Desk.Symbol,
		FeeBps:   cfg.Desk.FeeBps,
		Workflow: workflow,
		Draft:    order.NewDraft(),
		Wallet:   w,
		Chain:    gateway,
		Settings: prefs,
		Markets:  market.DeskSnapshot(),
		History:  journal,
		Chat:     chat.DeskRoom(nil, sugar),
		Hub:      hub,
	}, sugar)

	errc := make(chan error, 1)
	go func() {
		errc <- apiServer.Start(cfg.API.Addr, cfg.API.AllowedOrigins)
	}()

	sugar.Infow("desk_started",
		"symbol", cfg.Desk.Symbol,
		"rpc", cfg.Chain.RPCURL,
		"contract", cfg.Chain.ContractAddress,
		"api", cfg.API.Addr)

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			sugar.Errorw("api_server_failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}
	sugar.Infow("desk_stopped", "last_state", workflow.State().String())
}
