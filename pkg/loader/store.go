package loader

import "context"

// Statement is one parameterized SQL command.
type Statement struct {
	SQL  string
	Args []any
}

// Store is the transactional destination the loader writes to.
type Store interface {
	// Exec runs one statement in its own transaction and returns the
	// number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	// ExecBatch runs stmts in a single transaction sent as one batched
	// request. It returns rows affected per statement.
	ExecBatch(ctx context.Context, stmts []Statement) ([]int64, error)
	// QueryInt runs a query returning a single integer.
	QueryInt(ctx context.Context, sql string, args ...any) (int64, error)
}
