package inmem

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/revealx-tools/console/internal/extrahop"
	"github.com/revealx-tools/console/internal/random"
	"github.com/revealx-tools/console/internal/session"
)

var tokenLength = 64

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"sessions": {
			Name: "sessions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Token"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory session storage driver built using hashicorp/go-memdb.
// Sessions stored with it do not survive a console restart, which matches the
// tab-scoped storage of the original web console.
type Driver struct {
	db *memdb.MemDB
}

var _ session.Storage = (*Driver)(nil)

// New creates a new empty in-memory session storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{db}, nil
}

// GetByRawToken retrieves a session by its raw (prior hashing) token
func (driver *Driver) GetByRawToken(_ context.Context, rawToken string) (*session.Session, error) {
	hash := session.HashToken(rawToken)

	txn := driver.db.Txn(false)
	obj, err := txn.First("sessions", "id", hash)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	return obj.(*session.Session), nil
}

// Create creates a new session for the given deployment configuration and
// returns the raw token together with the stored session
func (driver *Driver) Create(_ context.Context, config extrahop.Config, accessToken string, connectedAt, expires int64) (string, *session.Session, error) {
	rawToken := random.String(tokenLength, random.CharsetTokens)

	ses := &session.Session{
		ID:          uuid.New(),
		Token:       session.HashToken(rawToken),
		Config:      config,
		AccessToken: accessToken,
		ConnectedAt: connectedAt,
		Expires:     expires,
	}

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", ses); err != nil {
		return "", nil, err
	}
	txn.Commit()

	return rawToken, ses, nil
}

// UpdateAccessToken replaces the stored access token of a session after a refresh
func (driver *Driver) UpdateAccessToken(_ context.Context, rawToken, accessToken string) error {
	hash := session.HashToken(rawToken)

	txn := driver.db.Txn(true)
	defer txn.Abort()
	obj, err := txn.First("sessions", "id", hash)
	if err != nil {
		return err
	}
	if obj == nil {
		return nil
	}

	updated := *obj.(*session.Session)
	updated.AccessToken = accessToken
	if err := txn.Insert("sessions", &updated); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateByRawToken terminates a session by its raw token
func (driver *Driver) TerminateByRawToken(_ context.Context, rawToken string) error {
	hash := session.HashToken(rawToken)

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "id", hash); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateExpired terminates all sessions that are expired
func (driver *Driver) TerminateExpired(_ context.Context) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound("sessions", "expires", int64(0))
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixMilli()
	var expired []*session.Session
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ses := obj.(*session.Session)
		if ses.Expires > now {
			break
		}
		expired = append(expired, ses)
	}
	for _, ses := range expired {
		if err := txn.Delete("sessions", ses); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}
