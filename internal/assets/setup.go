package assets

import (
	"gorm.io/gorm"

	"github.com/StreetCred/SC-Backend/internal/db"
)

// Init creates the schema and the assets table.
func Init(d *gorm.DB) error {
	return db.Migrate(d, "assets", &Asset{})
}
