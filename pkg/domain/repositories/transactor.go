package repositories

import "context"

// Tx exposes the repositories bound to one unit of work
type Tx interface {
	Recipes() RecipeRepository
	Plans() PlanRepository
	WorkOrders() WorkOrderRepository
}

// Transactor runs units of work. RunInTransaction commits only when fn
// returns nil; View is read-only. When ctx carries an open unit of work
// of the same Transactor (see WithTx), both run inside it.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

type txKey struct{}

// WithTx returns a copy of ctx carrying the open unit of work tx
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom returns the unit of work carried by ctx, if any
func TxFrom(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(Tx)
	return tx, ok
}
