package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Query executes a raw SurrealQL query with parameters and returns the rows of
// the first statement, unmarshalled into T.
//
// Example:
//
//	query := "SELECT * FROM room WHERE participants CONTAINS $user"
//	rooms, err := Query[roomRecord](ctx, db, query, map[string]any{"user": "42"})
func Query[T any](ctx context.Context, db *surrealdb.DB, query string, params map[string]any) ([]T, error) {
	queryResults, err := surrealdb.Query[[]T](ctx, db, query, params)
	if err != nil {
		return nil, err
	}
	if queryResults == nil || len(*queryResults) == 0 {
		return nil, nil
	}
	first := (*queryResults)[0]
	if first.Status != "" && first.Status != "OK" {
		return nil, fmt.Errorf("statement finished with status %s", first.Status)
	}
	return first.Result, nil
}

// QueryOne executes a query and returns a single result.
// If no results are found, it returns nil, nil.
func QueryOne[T any](ctx context.Context, db *surrealdb.DB, query string, params map[string]any) (*T, error) {
	// CREATE/UPDATE/DELETE statements don't support LIMIT.
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") && !hasLimitClause(query) {
		query += " LIMIT 1"
	}

	results, err := Query[T](ctx, db, query, params)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Execute runs a query whose rows are not needed.
func Execute(ctx context.Context, db *surrealdb.DB, query string, params map[string]any) error {
	results, err := surrealdb.Query[any](ctx, db, query, params)
	if err != nil {
		return err
	}
	if results != nil {
		for i, r := range *results {
			if r.Status != "" && r.Status != "OK" {
				return fmt.Errorf("statement %d finished with status %s", i, r.Status)
			}
		}
	}
	return nil
}

// hasLimitClause checks if the query already has a LIMIT clause
func hasLimitClause(query string) bool {
	query = " " + strings.ToUpper(query) + " "
	return strings.Contains(query, " LIMIT ")
}

// read runs fn under the read timeout with reconnection handling and wraps
// any failure with op and the query text.
func (c *Connection) read(ctx context.Context, op, query string, fn func(ctx context.Context, db *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.QueryTimeout(), ContextKeyQueryTimeout)
	defer cancel()
	return c.run(ctx, op, query, fn)
}

// write is read's counterpart for statements that modify data.
func (c *Connection) write(ctx context.Context, op, query string, fn func(ctx context.Context, db *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.ExecuteTimeout(), ContextKeyExecuteTimeout)
	defer cancel()
	return c.run(ctx, op, query, fn)
}

func (c *Connection) run(ctx context.Context, op, query string, fn func(ctx context.Context, db *surrealdb.DB) error) error {
	err := c.WithConnection(ctx, func(db *surrealdb.DB) error {
		return fn(ctx, db)
	})
	if err == nil {
		return nil
	}
	wrapped := WrapError(err, op)
	if dbErr, ok := wrapped.(*DBError); ok && dbErr.query == "" {
		dbErr.WithQuery(query)
	}
	return wrapped
}
