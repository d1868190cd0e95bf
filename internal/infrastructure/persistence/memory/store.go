package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

type contextKey string

const txKey contextKey = "memory_tx"

// Store keeps request aggregates and history in process memory. It
// implements port.TransactionManager: writes made inside a transaction are
// buffered and applied atomically at commit, and row locks taken through
// the repositories are held until the transaction ends.
type Store struct {
	mu        sync.RWMutex
	requests  map[string]*entity.Request
	refs      map[string]string
	history   map[string][]*entity.RequestHistory
	historyID int64

	requestLocks *keyedLocks
	ownerLocks   *keyedLocks
	logger       *zap.Logger
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		requests:     make(map[string]*entity.Request),
		refs:         make(map[string]string),
		history:      make(map[string][]*entity.RequestHistory),
		requestLocks: newKeyedLocks(),
		ownerLocks:   newKeyedLocks(),
		logger:       logger,
	}
}

// op is a buffered write: check runs against committed state, apply mutates it
type op struct {
	check func(s *Store) error
	apply func(s *Store)
}

type tx struct {
	ops     []op
	held    map[string]func()
	release []func()
}

// WithTransaction runs fn inside a transaction carried on the context.
// A context that already carries one reuses it.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	t := &tx{held: make(map[string]func())}
	txCtx := context.WithValue(ctx, txKey, t)
	defer t.unlockAll()

	if err := fn(txCtx); err != nil {
		return err
	}

	if err := s.commit(t); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) commit(t *tx) error {
	if len(t.ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range t.ops {
		if err := o.check(s); err != nil {
			return err
		}
	}
	for _, o := range t.ops {
		o.apply(s)
	}
	return nil
}

// write buffers o in the context's transaction, or applies it at once
func (s *Store) write(ctx context.Context, o op) error {
	if t := txFrom(ctx); t != nil {
		s.mu.RLock()
		err := o.check(s)
		s.mu.RUnlock()
		if err != nil {
			return err
		}
		t.ops = append(t.ops, o)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := o.check(s); err != nil {
		return err
	}
	o.apply(s)
	return nil
}

// lock takes key from locks for the rest of the transaction
func (s *Store) lock(ctx context.Context, locks *keyedLocks, key string) error {
	t := txFrom(ctx)
	if t == nil {
		return fmt.Errorf("lock on %s requires a transaction", key)
	}
	if _, ok := t.held[key]; ok {
		return nil
	}

	unlock, err := locks.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	t.held[key] = unlock
	t.release = append(t.release, unlock)
	return nil
}

func (t *tx) unlockAll() {
	for i := len(t.release) - 1; i >= 0; i-- {
		t.release[i]()
	}
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey).(*tx)
	return t
}

var _ port.TransactionManager = (*Store)(nil)
