package rls

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// WithTenant scopes row level security policies of the current transaction to
// tenantID. Dialects without RLS are left untouched.
func WithTenant(tx *gorm.DB, tenantID snowflake.ID) error {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SET LOCAL app.current_tenant_id = ?", tenantID.String()).Error
}

// Transaction runs fn in a transaction scoped to tenantID.
func Transaction(db *gorm.DB, tenantID snowflake.ID, fn func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := WithTenant(tx, tenantID); err != nil {
			return err
		}
		return fn(tx)
	})
}
