package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "certchain/core/errors"
	"certchain/core/events"
	"certchain/core/genesis"
	"certchain/core/state"
	"certchain/native/bank"
	"certchain/native/certificate"
	"certchain/native/sale"
	"certchain/observability"
	telemetry "certchain/observability/otel"
	"certchain/storage"
)

// ErrGenesisApplied is returned when a genesis document is applied to a
// ledger that already has one.
var ErrGenesisApplied = errors.New("core: genesis already applied")

// Ledger is the set of engines an operation runs against.
type Ledger struct {
	Bank         *bank.Engine
	Certificates *certificate.Engine
	// Sale is nil when no sale account is configured.
	Sale *sale.Engine
}

// Options configures a Host.
type Options struct {
	DB          storage.Database
	Collection  certificate.Config
	SaleAddress common.Address
	// Sink receives events of committed operations, in order.
	Sink   events.Emitter
	Logger *slog.Logger
	Now    func() int64
}

// Host serialises ledger operations. Each operation runs to completion
// before the next starts; its writes are committed to storage and its
// events released to the sink only if it succeeds.
type Host struct {
	mu     sync.Mutex
	db     storage.Database
	state  *state.Manager
	ledger Ledger
	buffer *events.Buffer
	sink   events.Emitter
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHost wires the engines over db and stamps the schema version.
func NewHost(opts Options) (*Host, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if opts.Collection.Address == (common.Address{}) {
		return nil, fmt.Errorf("core: collection address required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.NoopEmitter{}
	}

	h := &Host{
		db:     opts.DB,
		state:  state.NewManager(opts.DB),
		buffer: &events.Buffer{},
		sink:   sink,
		logger: logger.With("component", "host"),
		tracer: telemetry.Tracer(),
	}

	b := bank.NewEngine()
	b.SetState(h.state)
	b.SetEmitter(h.buffer)
	b.SetLogger(logger)

	certs := certificate.NewEngine(opts.Collection)
	certs.SetState(h.state)
	certs.SetAssets(b)
	certs.SetEmitter(h.buffer)
	certs.SetLogger(logger)
	if opts.Now != nil {
		certs.SetNowFunc(opts.Now)
	}
	h.ledger = Ledger{Bank: b, Certificates: certs}

	if opts.SaleAddress != (common.Address{}) {
		sales := sale.NewEngine(opts.SaleAddress)
		sales.SetState(h.state)
		sales.SetAssets(b)
		sales.SetEmitter(h.buffer)
		sales.SetLogger(logger)
		if opts.Now != nil {
			sales.SetNowFunc(opts.Now)
		}
		sales.RegisterCollection(certs)
		h.ledger.Sale = sales
	}

	if err := h.state.EnsureStateVersion(); err != nil {
		return nil, err
	}
	if err := h.state.Commit(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Host) rollback() {
	h.state.Discard()
	h.buffer.Reset()
}

// Execute runs fn as one atomic operation named op.
func (h *Host) Execute(ctx context.Context, op string, fn func(Ledger) error) error {
	ctx, span := h.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attribute.String("operation", op)))
	defer span.End()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := fn(h.ledger)
	if err == nil {
		if commitErr := h.state.Commit(); commitErr != nil {
			err = fmt.Errorf("core: %s: %w", op, commitErr)
		} else {
			observability.Host().RecordCommit()
		}
	}
	if err != nil {
		h.rollback()
		kind := coreerrors.KindOf(err)
		observability.Host().Observe(op, kind.String(), time.Since(start))
		span.SetStatus(codes.Error, coreerrors.ReasonOf(err))
		span.SetAttributes(attribute.String("error.kind", kind.String()))
		h.logger.Debug("operation rejected", "operation", op, "kind", kind.String(), "reason", coreerrors.ReasonOf(err))
		return err
	}
	observability.Host().Observe(op, "", time.Since(start))

	released := h.buffer.Drain()
	span.SetAttributes(attribute.Int("events", len(released)))
	for _, evt := range released {
		observability.Events().RecordEvent(evt.EventType())
		h.sink.Emit(evt)
	}
	return nil
}

// Query runs fn against the committed state. Any writes fn makes are
// discarded.
func (h *Host) Query(ctx context.Context, fn func(Ledger) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	defer h.rollback()
	return fn(h.ledger)
}

// ApplyGenesis seeds an empty ledger from spec. Reapplying the same
// document is a no-op; a different document fails with ErrGenesisApplied.
func (h *Host) ApplyGenesis(ctx context.Context, spec *genesis.GenesisSpec) error {
	if spec == nil {
		return fmt.Errorf("core: genesis spec required")
	}
	return h.Execute(ctx, "genesis", func(l Ledger) error {
		applied, ok, err := h.state.GenesisHash()
		if err != nil {
			return err
		}
		if ok {
			if common.Hash(applied) == spec.Hash() {
				return nil
			}
			return ErrGenesisApplied
		}
		var saleAccount interface{ Address() common.Address }
		if l.Sale != nil {
			saleAccount = l.Sale
		}
		if err := genesis.Apply(spec, genesis.Ledger{Bank: l.Bank, Certificates: l.Certificates, Sale: saleAccount}); err != nil {
			return err
		}
		h.logger.Info("genesis applied", "hash", spec.Hash().Hex())
		return h.state.MarkGenesis(spec.Hash())
	})
}

// Collection returns the certificate collection address.
func (h *Host) Collection() common.Address {
	return h.ledger.Certificates.Address()
}

// SaleEnabled reports whether the sale module is wired.
func (h *Host) SaleEnabled() bool {
	return h.ledger.Sale != nil
}

// Close releases the underlying database.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rollback()
	h.db.Close()
}
