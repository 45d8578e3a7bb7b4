package postgres

import (
	"context"
	"fmt"
)

// NotifyChannel is the LISTEN/NOTIFY channel the documents trigger publishes on.
const NotifyChannel = "documents_changed"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT        NOT NULL,
    collection  TEXT        NOT NULL,
    data        JSONB       NOT NULL DEFAULT '{}'::jsonb,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS documents_collection_created_idx
    ON documents (collection, created_at);

CREATE OR REPLACE FUNCTION notify_documents_changed() RETURNS trigger AS $$
DECLARE
    rec RECORD;
BEGIN
    IF TG_OP = 'DELETE' THEN
        rec := OLD;
    ELSE
        rec := NEW;
    END IF;
    PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
        'collection', rec.collection,
        'id', rec.id,
        'op', TG_OP
    )::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_changed ON documents;

CREATE TRIGGER documents_changed
    AFTER INSERT OR UPDATE OR DELETE ON documents
    FOR EACH ROW EXECUTE FUNCTION notify_documents_changed();
`

// Migrate creates the documents table and its change trigger. It is safe to
// run repeatedly.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply documents schema: %w", err)
	}
	return nil
}
