package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

// ErrReadOnly is returned by writes attempted inside View
var ErrReadOnly = errors.New("memory: write attempted in a read-only view")

const dateKeyLayout = "2006-01-02"

type state struct {
	recipes    map[string]*entities.Recipe
	categories map[string]entities.IngredientCategory
	plans      map[string]*entities.Plan
	workOrders map[uuid.UUID]*entities.WorkOrder
	codes      map[string]uuid.UUID
}

func newState() state {
	return state{
		recipes:    make(map[string]*entities.Recipe),
		categories: make(map[string]entities.IngredientCategory),
		plans:      make(map[string]*entities.Plan),
		workOrders: make(map[uuid.UUID]*entities.WorkOrder),
		codes:      make(map[string]uuid.UUID),
	}
}

func (s state) clone() state {
	c := state{
		recipes:    make(map[string]*entities.Recipe, len(s.recipes)),
		categories: make(map[string]entities.IngredientCategory, len(s.categories)),
		plans:      make(map[string]*entities.Plan, len(s.plans)),
		workOrders: make(map[uuid.UUID]*entities.WorkOrder, len(s.workOrders)),
		codes:      make(map[string]uuid.UUID, len(s.codes)),
	}
	for k, v := range s.recipes {
		c.recipes[k] = v.Clone()
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.plans {
		c.plans[k] = v.Clone()
	}
	for k, v := range s.workOrders {
		c.workOrders[k] = v.Clone()
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	return c
}

// Store keeps every production entity in memory. Transactions run
// against a private copy of the state that replaces the live state
// only when the function succeeds, so a failed unit of work leaves no
// trace. Transactions are serialised.
type Store struct {
	mu    sync.RWMutex
	state state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState()}
}

// Verify interface compliance
var _ repositories.Transactor = (*Store)(nil)

// RunInTransaction executes fn against a copy of the state and commits it
// on success. Inside an open transaction of this store (ctx from WithTx)
// fn joins that transaction instead.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if open := s.openTx(ctx); open != nil {
		return fn(open)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{store: s, state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against the live state, or against the open
// transaction carried by ctx. Writes fail with ErrReadOnly.
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if open := s.openTx(ctx); open != nil {
		return fn(&transaction{store: s, state: open.state, readOnly: true})
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&transaction{store: s, state: s.state, readOnly: true})
}

// openTx returns the writable transaction of this store carried by ctx.
// The store lock is already held by whoever opened it.
func (s *Store) openTx(ctx context.Context) *transaction {
	tx, ok := repositories.TxFrom(ctx)
	if !ok {
		return nil
	}
	t, ok := tx.(*transaction)
	if !ok || t.store != s || t.readOnly {
		return nil
	}
	return t
}

type transaction struct {
	store    *Store
	state    state
	readOnly bool
}

func (tx *transaction) Recipes() repositories.RecipeRepository {
	return &recipeRepository{tx: tx}
}

func (tx *transaction) Plans() repositories.PlanRepository {
	return &planRepository{tx: tx}
}

func (tx *transaction) WorkOrders() repositories.WorkOrderRepository {
	return &workOrderRepository{tx: tx}
}

func (tx *transaction) checkWritable() error {
	if tx.readOnly {
		return ErrReadOnly
	}
	return nil
}
