package verify

import (
	"gorm.io/gorm"

	"github.com/StreetCred/SC-Backend/internal/db"
)

// Init creates the reports table.
func Init(d *gorm.DB) error {
	return db.Migrate(d, "reports", &Report{})
}
