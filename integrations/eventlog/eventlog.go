// Package eventlog persists committed ledger events in an append-only table
// so they can be listed and exported after the fact.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"certchain/core/events"
	"certchain/core/types"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// ErrClosed is returned by operations on a closed log.
var ErrClosed = errors.New("eventlog: closed")

// Record is one persisted event. Seq is assigned on insert and is strictly
// increasing.
type Record struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	Module     string    `gorm:"index;size:32" json:"module"`
	Type       string    `gorm:"index;size:64" json:"type"`
	Attributes string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName pins the table name independent of the struct name.
func (Record) TableName() string { return "ledger_events" }

// Event decodes the stored attributes back into the wire form.
func (r Record) Event() (*types.Event, error) {
	attrs := map[string]string{}
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("eventlog: decode attributes of %d: %w", r.Seq, err)
		}
	}
	return &types.Event{Type: r.Type, Attributes: attrs}, nil
}

// Filter narrows List results.
type Filter struct {
	// After returns records with Seq strictly greater than it.
	After  uint64
	Type   string
	Module string
	Limit  int
}

// Log is a gorm-backed event store.
type Log struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
	closed atomic.Bool
}

// Open connects to driver ("sqlite", "postgres" or "memory") and migrates
// the schema.
func Open(driver, dsn string) (*Log, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "", "memory":
		dialector = sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	default:
		return nil, fmt.Errorf("eventlog: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) (*Log, error) {
	if db == nil {
		return nil, fmt.Errorf("eventlog: database required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("eventlog: migrate: %w", err)
	}
	return &Log{
		db:     db,
		logger: slog.Default().With("component", "eventlog"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetLogger configures the structured logger.
func (l *Log) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l.logger = logger.With("component", "eventlog")
}

func moduleOf(eventType string) string {
	module, _, found := strings.Cut(eventType, ".")
	if !found {
		return ""
	}
	return module
}

func (l *Log) record(evt *types.Event) (*Record, error) {
	attrs := evt.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	return &Record{
		Module:     moduleOf(evt.Type),
		Type:       evt.Type,
		Attributes: string(encoded),
		CreatedAt:  l.now(),
	}, nil
}

// Append stores evts in order within one transaction.
func (l *Log) Append(ctx context.Context, evts ...*types.Event) error {
	if l.closed.Load() {
		return ErrClosed
	}
	rows := make([]*Record, 0, len(evts))
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		row, err := l.record(evt)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Emit implements events.Emitter. Storage failures are logged; the ledger
// operation that produced the event has already committed.
func (l *Log) Emit(evt events.Event) {
	payload := events.Payload(evt)
	if payload == nil {
		return
	}
	if err := l.Append(context.Background(), payload); err != nil {
		l.logger.Error("append event failed", "type", payload.Type, "error", err)
	}
}

// List returns records matching filter in sequence order.
func (l *Log) List(ctx context.Context, filter Filter) ([]Record, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	query := l.db.WithContext(ctx).Where("seq > ?", filter.After)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Module != "" {
		query = query.Where("module = ?", filter.Module)
	}
	var out []Record
	if err := query.Order("seq asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (l *Log) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
