package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"certchain/config"
	"certchain/core"
	"certchain/core/events"
	"certchain/core/genesis"
	"certchain/crypto"
	"certchain/integrations/eventlog"
	"certchain/integrations/webhooks"
	"certchain/native/certificate"
	"certchain/rpc"
	"certchain/storage"
)

// node owns every long-lived component of the daemon.
type node struct {
	host    *core.Host
	events  *eventlog.Log
	webhook *webhooks.Dispatcher
	server  *rpc.Server
}

func newNode(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *node, err error) {
	n := &node{}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare data directory: %w", err)
	}

	n.events, err = eventlog.Open(cfg.EventLog.Driver, cfg.EventLog.DSN)
	if err != nil {
		return nil, err
	}
	n.events.SetLogger(logger)
	sinks := events.Multi{n.events}

	if strings.TrimSpace(cfg.Webhook.URL) != "" {
		secret, err := cfg.WebhookSecret()
		if err != nil {
			return nil, err
		}
		n.webhook, err = webhooks.NewDispatcher(cfg.Webhook.URL, secret,
			webhooks.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second}),
			webhooks.WithEventPrefixes(cfg.Webhook.EventPrefixes...),
			webhooks.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, n.webhook)
	}

	collection, err := crypto.ParseAddress(cfg.Collection.Address)
	if err != nil {
		return nil, fmt.Errorf("collection address: %w", err)
	}
	var saleAddr common.Address
	if strings.TrimSpace(cfg.Sale.Address) != "" {
		if saleAddr, err = crypto.ParseAddress(cfg.Sale.Address); err != nil {
			return nil, fmt.Errorf("sale address: %w", err)
		}
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	n.host, err = core.NewHost(core.Options{
		DB: db,
		Collection: certificate.Config{
			Address:                     collection,
			Name:                        cfg.Collection.Name,
			Symbol:                      cfg.Collection.Symbol,
			RefreshExpirationOnTransfer: cfg.Collection.RefreshExpirationOnTransfer,
		},
		SaleAddress: saleAddr,
		Sink:        sinks,
		Logger:      logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if path := strings.TrimSpace(cfg.GenesisFile); path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err != nil {
			return nil, err
		}
		if err := n.host.ApplyGenesis(ctx, spec); err != nil {
			if errors.Is(err, core.ErrGenesisApplied) {
				return nil, fmt.Errorf("genesis %s does not match the ledger in %s: %w", path, cfg.DataDir, err)
			}
			return nil, err
		}
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		logger.Warn("caller authentication disabled; state-changing methods will be rejected", slog.Any("error", err))
		secret = nil
	}
	n.server, err = rpc.NewServer(n.host, n.events, rpc.Config{
		Auth: rpc.AuthConfig{
			HMACSecret: secret,
			Issuer:     cfg.RPC.JWTIssuer,
			Audience:   cfg.RPC.JWTAudience,
		},
		RateLimit:    rpc.RateLimit{PerSecond: cfg.RPC.RateLimitPerSecond, Burst: cfg.RPC.RateLimitBurst},
		MaxBodyBytes: cfg.RPC.MaxBodyBytes,
		EnableFaucet: cfg.RPC.EnableFaucet,
	}, logger)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Close stops the webhook worker before closing the stores it reads from.
func (n *node) Close() {
	if n == nil {
		return
	}
	if n.webhook != nil {
		n.webhook.Close()
	}
	if n.host != nil {
		n.host.Close()
	}
	if n.events != nil {
		_ = n.events.Close()
	}
}
