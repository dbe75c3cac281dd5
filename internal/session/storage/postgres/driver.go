package postgres

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/revealx-tools/console/internal/extrahop"
	"github.com/revealx-tools/console/internal/random"
	"github.com/revealx-tools/console/internal/session"

	sq "github.com/Masterminds/squirrel"
)

//go:embed migrations/*.sql
var migrations embed.FS

var tokenLength = 64

// Driver represents the PostgreSQL session storage driver implementation.
// Unlike the in-memory driver, sessions stored with it survive console restarts.
type Driver struct {
	dsn string
	db  *pgxpool.Pool
}

var _ session.Storage = (*Driver)(nil)

// New creates a new empty PostgreSQL session storage driver.
// Use Initialize to open the database connection and migrate the schema.
func New(dsn string) *Driver {
	return &Driver{
		dsn: dsn,
	}
}

// Initialize opens the database connection and migrates the database
func (driver *Driver) Initialize(ctx context.Context) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, driver.dsn)
	if err != nil {
		return err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	pool, err := pgxpool.Connect(ctx, driver.dsn)
	if err != nil {
		return err
	}
	driver.db = pool
	return nil
}

// Close closes the database connection
func (driver *Driver) Close() {
	if driver.db != nil {
		driver.db.Close()
	}
}

// GetByRawToken retrieves a session by its raw (prior hashing) token
func (driver *Driver) GetByRawToken(ctx context.Context, rawToken string) (*session.Session, error) {
	row := driver.db.QueryRow(ctx, "SELECT * FROM console_sessions WHERE token = $1", session.HashToken(rawToken))
	obj, err := rowToSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create creates a new session for the given deployment configuration and
// returns the raw token together with the stored session
func (driver *Driver) Create(ctx context.Context, config extrahop.Config, accessToken string, connectedAt, expires int64) (string, *session.Session, error) {
	rawToken := random.String(tokenLength, random.CharsetTokens)

	ses := &session.Session{
		ID:          uuid.New(),
		Token:       session.HashToken(rawToken),
		Config:      config,
		AccessToken: accessToken,
		ConnectedAt: connectedAt,
		Expires:     expires,
	}

	_, err := driver.db.Exec(
		ctx,
		`INSERT INTO console_sessions VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ses.Token,
		ses.ID,
		string(ses.Config.Type),
		ses.Config.Tenant,
		ses.Config.APIID,
		ses.Config.APISecret,
		ses.Config.UseProxy,
		ses.Config.Host,
		ses.Config.APIKey,
		ses.AccessToken,
		ses.ConnectedAt,
		ses.Expires,
	)
	if err != nil {
		return "", nil, err
	}
	return rawToken, ses, nil
}

// UpdateAccessToken replaces the stored access token of a session after a refresh
func (driver *Driver) UpdateAccessToken(ctx context.Context, rawToken, accessToken string) error {
	query := sq.Update("console_sessions").
		Set("access_token", accessToken).
		Where(sq.Eq{"token": session.HashToken(rawToken)})

	sql, values, err := query.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return err
	}
	_, err = driver.db.Exec(ctx, sql, values...)
	return err
}

// TerminateByRawToken terminates a session by its raw token
func (driver *Driver) TerminateByRawToken(ctx context.Context, rawToken string) error {
	_, err := driver.db.Exec(ctx, "DELETE FROM console_sessions WHERE token = $1", session.HashToken(rawToken))
	return err
}

// TerminateExpired terminates all sessions that are expired
func (driver *Driver) TerminateExpired(ctx context.Context) (int, error) {
	tag, err := driver.db.Exec(ctx, "DELETE FROM console_sessions WHERE expires <= $1", time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func rowToSession(row pgx.Row) (*session.Session, error) {
	obj := new(session.Session)
	var deploymentType string
	err := row.Scan(
		&obj.Token,
		&obj.ID,
		&deploymentType,
		&obj.Config.Tenant,
		&obj.Config.APIID,
		&obj.Config.APISecret,
		&obj.Config.UseProxy,
		&obj.Config.Host,
		&obj.Config.APIKey,
		&obj.AccessToken,
		&obj.ConnectedAt,
		&obj.Expires,
	)
	if err != nil {
		return nil, err
	}
	obj.Config.Type = extrahop.DeploymentType(deploymentType)
	return obj, nil
}
