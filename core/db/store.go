package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fbz-tec/pgxstream/core/config"
	"github.com/fbz-tec/pgxstream/core/errs"
)

// Row holds the text form of one result row, NULL as "". The slice is only
// valid for the duration of the callback it is passed to.
type Row []string

// ColumnSet lists the result column names in result order.
type ColumnSet []string

// ErrNotConnected is returned by query operations issued before Connect.
var ErrNotConnected = errors.New("database not connected")

// RowSource defines the interface for streaming query results.
// Implementations handle connection management and batched fetching.
type RowSource interface {
	Connect(ctx context.Context) error
	// DiscoverColumns returns the result columns of query without
	// fetching any row.
	DiscoverColumns(ctx context.Context, query string) (ColumnSet, error)
	// StreamQuery runs query once and calls onRow for every row, in result
	// order. An error from onRow stops the stream and is returned as is.
	StreamQuery(ctx context.Context, query string, onRow func(Row) error) (ColumnSet, error)
	Close() error
}

type Factory func(cfg config.SourceConfig) (RowSource, error)

var registry = map[string]Factory{}

func init() {
	newPg := func(cfg config.SourceConfig) (RowSource, error) {
		return NewPgSource(cfg), nil
	}
	MustRegister("postgres", newPg)
	MustRegister("postgresql", newPg)
	MustRegister("pg", newPg)
}

// Register adds a backend under kind.
func Register(kind string, factory Factory) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if _, exists := registry[kind]; exists {
		return fmt.Errorf("source: type %q already registered", kind)
	}
	registry[kind] = factory
	return nil
}

func MustRegister(kind string, factory Factory) {
	if err := Register(kind, factory); err != nil {
		panic(err)
	}
}

// NewSource returns the backend registered for cfg.Type. An unknown type
// is a connection error.
func NewSource(cfg config.SourceConfig) (RowSource, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	factory, ok := registry[kind]
	if !ok {
		return nil, errs.Wrap(errs.Connection, errs.PhaseConnect,
			fmt.Errorf("unsupported database type: %q (available: %s)", cfg.Type, strings.Join(List(), ", ")))
	}
	src, err := factory(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.Connection, errs.PhaseConnect, err)
	}
	return src, nil
}

// List returns the registered source types, sorted.
func List() []string {
	kinds := make([]string, 0, len(registry))
	for name := range registry {
		kinds = append(kinds, name)
	}
	sort.Strings(kinds)
	return kinds
}
