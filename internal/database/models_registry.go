package database

import "linker/internal/models"

// PersistentModels returns the full set of GORM models that AutoMigrate
// and test databases need to know about.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Persona{},
	}
}
