package database

import (
	"context"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"
)

// schema is applied on every start; each statement is idempotent.
const schema = `
DEFINE TABLE IF NOT EXISTS user SCHEMALESS;
DEFINE TABLE IF NOT EXISTS room SCHEMALESS;
DEFINE INDEX IF NOT EXISTS room_name_unique ON TABLE room FIELDS name UNIQUE;
DEFINE INDEX IF NOT EXISTS room_participants ON TABLE room FIELDS participants;
DEFINE TABLE IF NOT EXISTS message SCHEMALESS;
DEFINE INDEX IF NOT EXISTS message_room ON TABLE message FIELDS room_id;
DEFINE INDEX IF NOT EXISTS message_unread ON TABLE message FIELDS room_id, is_read;
`

// Migrate defines the tables and indexes the repositories rely on. The unique
// index on room.name is what makes concurrent get-or-create safe.
func Migrate(ctx context.Context, conn *Connection) error {
	err := conn.write(ctx, "apply schema", schema, func(ctx context.Context, db *surrealdb.DB) error {
		return Execute(ctx, db, schema, nil)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Database schema applied", "event", "db_schema_applied")
	return nil
}
