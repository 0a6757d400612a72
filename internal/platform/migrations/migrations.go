package migrations

import (
	"fmt"

	"gorm.io/gorm"

	adoptionpostgres "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/persistence/postgres"
)

// partialIndexes carry the uniqueness rules AutoMigrate cannot express.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_adoption_requests_pending_applicant
		ON adoption_requests (pet_id, applicant_id) WHERE status = 'pending'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_adoption_requests_active_pet
		ON adoption_requests (pet_id) WHERE status = 'approved'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_handovers_open_request
		ON handovers (request_id) WHERE status IN ('requested', 'confirmed')`,
}

// Run applies the schema of the adoption context.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(adoptionpostgres.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
