package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// EnsureSchema creates the StreetCred schema if it is missing.
func EnsureSchema(d *gorm.DB) error {
	quoted := `"` + strings.ReplaceAll(Schema, `"`, `""`) + `"`
	if err := d.Exec("CREATE SCHEMA IF NOT EXISTS " + quoted).Error; err != nil {
		return fmt.Errorf("ensure schema %s: %w", Schema, err)
	}
	return nil
}

// Migrate ensures the schema and auto-migrates models into it. name only
// labels the error.
func Migrate(d *gorm.DB, name string, models ...any) error {
	if err := EnsureSchema(d); err != nil {
		return err
	}
	if err := d.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate %s: %w", name, err)
	}
	return nil
}
