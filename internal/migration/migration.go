package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
	electiondomain "github.com/humesociety/humesociety-sub000/internal/election/domain"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	invitationdomain "github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	journaldomain "github.com/humesociety/humesociety-sub000/internal/journal/domain"
	membershipdomain "github.com/humesociety/humesociety-sub000/internal/membership/domain"
	pagedomain "github.com/humesociety/humesociety-sub000/internal/page/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type, in foreign key order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&emaildomain.Template{},
		&conferencedomain.Conference{},
		&conferencedomain.Submission{},
		&invitationdomain.Invitation{},
		&auditdomain.AuditLog{},
		&membershipdomain.DuesPayment{},
		&journaldomain.Issue{},
		&journaldomain.Article{},
		&pagedomain.Page{},
		&electiondomain.Election{},
		&electiondomain.Candidate{},
		&electiondomain.Ballot{},
	}
}

// Apply brings the schema up to date. Postgres runs the versioned SQL migrations;
// other drivers are auto-migrated from the models and receive the default templates.
func Apply(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dbType == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}

// RunMigrations applies the embedded SQL migrations against postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the models and seeds the default email templates.
// Seeding skips labels that already exist, so edited templates survive restarts.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	seed, err := embeddedMigrations.ReadFile(seedTemplates)
	if err != nil {
		return fmt.Errorf("read template seed: %w", err)
	}
	if err := conn.Exec(string(seed)).Error; err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	return nil
}
