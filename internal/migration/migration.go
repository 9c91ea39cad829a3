package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/config"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	dealdomain "github.com/smallbiznis/imobi360/internal/deal/domain"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	leaddomain "github.com/smallbiznis/imobi360/internal/lead/domain"
	pipelinedomain "github.com/smallbiznis/imobi360/internal/pipeline/domain"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/smallbiznis/imobi360/pkg/db"
	"gorm.io/gorm"
)

// Models lists every table owned by the CRM core, parents first.
func Models() []any {
	return []any{
		&tenantdomain.Tenant{},
		&pipelinedomain.Pipeline{},
		&pipelinedomain.Stage{},
		&leaddomain.Lead{},
		&dealdomain.Deal{},
		&cfdomain.CustomField{},
		&eventdomain.Event{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. PostgreSQL uses the versioned SQL
// migrations, which also install the row level security policies. Other
// dialects are auto-migrated from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Down rolls back the given number of migrations.
func Down(sqlDB *sql.DB, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("invalid migration steps %d", steps)
	}
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func Version(sqlDB *sql.DB) (uint, bool, error) {
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// OpenPostgres opens a plain connection for the migrate command, outside of
// the gorm pool.
func OpenPostgres(cfg config.Config) (*sql.DB, error) {
	if cfg.DBType != db.DialectPostgres {
		return nil, fmt.Errorf("versioned migrations require postgres, got %s", cfg.DBType)
	}
	return sql.Open("postgres", db.PostgresDSN(cfg))
}

func newMigrator(sqlDB *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}
