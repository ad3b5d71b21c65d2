package postgres_test

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
)

var _ postgres.Querier = (*fakeQuerier)(nil)

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

type sqlCall struct {
	sql  string
	args []any
}

// fakeQuerier registra cada sentencia y responde QueryRow con las filas encoladas, en orden.
// Sin filas encoladas responde pgx.ErrNoRows.
type fakeQuerier struct {
	calls []sqlCall
	rows  []pgx.Row
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, sqlCall{sql: sql, args: args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls = append(q.calls, sqlCall{sql: sql, args: args})
	return nil, errors.New("fakeQuerier: Query no soportado")
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls = append(q.calls, sqlCall{sql: sql, args: args})
	if len(q.rows) == 0 {
		return rowFunc(func(...any) error { return pgx.ErrNoRows })
	}
	row := q.rows[0]
	q.rows = q.rows[1:]
	return row
}

func (q *fakeQuerier) push(rows ...pgx.Row) { q.rows = append(q.rows, rows...) }

// normalizedSQL colapsa espacios para comparar sentencias sin depender de la indentación.
func normalizedSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func errRow(err error) pgx.Row {
	return rowFunc(func(...any) error { return err })
}

func quantityRow(qty int64) pgx.Row {
	return rowFunc(func(dest ...any) error {
		*dest[0].(*int64) = qty
		return nil
	})
}
