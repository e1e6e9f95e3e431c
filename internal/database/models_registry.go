package database

import "inkwell/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Images come first: accounts and posts reference them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Image{},
		&models.User{},
		&models.Post{},
		&models.Comment{},
	}
}
