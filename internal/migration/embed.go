package migration

import "embed"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const (
	migrationsDir = "migrations"
	seedTemplates = "migrations/000002_default_email_templates.up.sql"
)
