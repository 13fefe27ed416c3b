package ledger

import (
	"gorm.io/gorm"

	"github.com/StreetCred/SC-Backend/internal/db"
)

// Init creates the score and badge tables.
func Init(d *gorm.DB) error {
	return db.Migrate(d, "ledger", &UserScore{}, &UserBadge{})
}
