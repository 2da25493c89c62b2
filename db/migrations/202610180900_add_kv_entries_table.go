package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// schema as of this migration; kvstore.KVEntry may diverge later
type kvEntry struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

var _202610180900_add_kv_entries_table = &gormigrate.Migration{
	ID: "202610180900_add_kv_entries_table",
	Migrate: func(tx *gorm.DB) error {
		return tx.AutoMigrate(&kvEntry{})
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(&kvEntry{})
	},
}
