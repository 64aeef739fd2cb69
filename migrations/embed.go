// Package migrations holds the postgres schema for the record store.
package migrations

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

// FS holds the *.sql files, applied in version order.
//
//go:embed *.sql
var FS embed.FS

// NewProvider returns a goose provider for FS over db. Server bootstrap
// and the integration tests both migrate through it.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, FS)
}
