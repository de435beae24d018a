package roles

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ahloulbait/internal/config"
	"ahloulbait/internal/models"
)

var identRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Directory is an optional external membership database where role grants
// are provisioned out of band. The guard consults it before local grants.
type Directory interface {
	HasAdmin(ctx context.Context, email string) (found bool, isAdmin bool, err error)
}

type SQLDirectory struct {
	db       *sql.DB
	driver   string
	table    string
	emailCol string
	roleCol  string
}

// NewDirectory returns nil (no directory) when the external role DB is not
// configured.
func NewDirectory(cfg config.Config) (Directory, error) {
	if strings.TrimSpace(cfg.RoleDBDriver) == "" || strings.TrimSpace(cfg.RoleDBDSN) == "" {
		return nil, nil
	}
	for _, ident := range []string{cfg.RoleDBTable, cfg.RoleDBEmailCol, cfg.RoleDBRoleCol} {
		if !identRx.MatchString(ident) {
			return nil, fmt.Errorf("invalid SQL identifier %q", ident)
		}
	}
	db, err := sql.Open(cfg.RoleDBDriver, cfg.RoleDBDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &SQLDirectory{
		db:       db,
		driver:   cfg.RoleDBDriver,
		table:    cfg.RoleDBTable,
		emailCol: cfg.RoleDBEmailCol,
		roleCol:  cfg.RoleDBRoleCol,
	}, nil
}

func (d *SQLDirectory) HasAdmin(ctx context.Context, email string) (bool, bool, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s=%s", d.roleCol, d.table, d.emailCol, d.ph(1))
	rows, err := d.db.QueryContext(ctx, q, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, false, err
	}
	defer rows.Close()
	found := false
	isAdmin := false
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return false, false, err
		}
		found = true
		if strings.EqualFold(strings.TrimSpace(role), models.RoleAdmin) {
			isAdmin = true
		}
	}
	return found, isAdmin, rows.Err()
}

func (d *SQLDirectory) ph(i int) string {
	if d.driver == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}
