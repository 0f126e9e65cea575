package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBConnKey carries a request-scoped connection. Repositories fall back to
// the shared pool when no connection is on the context.
const DBConnKey contextKey = "db_conn"

// WithConn returns a context carrying a dedicated connection, used when a
// sequence of repository calls must share one session.
func WithConn(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, DBConnKey, conn)
}

// ConnFromContext retrieves the request-scoped connection, or nil.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}
