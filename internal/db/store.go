package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blockloop/scan"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

var ErrNotFound = errors.New("not found")

type Session struct {
	Id          int    `db:"id"          json:"id"`
	Name        string `db:"name"        json:"name"        binding:"required"`
	Timestamp   int64  `db:"timestamp"   json:"timestamp"`
	Description string `db:"description" json:"description"`
	Data        []byte `db:"data"        json:"-"`
}

type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the SQLite database at path, and makes
// sure the built-in calibration methods exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// SQLite allows a single writer, and :memory: databases are per
	// connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create data tables: %w", err)
	}

	s := &Store{db: db}
	if err := s.seed(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (this *Store) Close() error {
	return this.db.Close()
}

func (this *Store) seed(ctx context.Context) error {
	for _, m := range psst.BuiltinMethods() {
		m := m
		if err := m.DumpRawData(); err != nil {
			return err
		}
		vals, err := scan.Values([]string{"id", "name", "description", "data"}, &m)
		if err != nil {
			return err
		}
		if _, err := this.db.ExecContext(ctx, SeedCalibrationMethod, vals...); err != nil {
			return fmt.Errorf("could not add calibration method %s: %w", m.Name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (this *Store) Tokens(ctx context.Context) ([]string, error) {
	rows, err := this.db.QueryContext(ctx, Tokens)
	if err != nil {
		return nil, err
	}
	var tokens []string
	if err := scan.Rows(&tokens, rows); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (this *Store) InsertToken(ctx context.Context, token string) error {
	_, err := this.db.ExecContext(ctx, InsertToken, token)
	return err
}

func (this *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := this.db.QueryContext(ctx, Sessions)
	if err != nil {
		return nil, err
	}
	sessions := []Session{}
	if err := scan.RowsStrict(&sessions, rows); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (this *Store) Session(ctx context.Context, id int64) (*Session, error) {
	rows, err := this.db.QueryContext(ctx, SelectSession, id)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := scan.RowStrict(&session, rows); err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (this *Store) SessionData(ctx context.Context, id int64) (name string, data []byte, err error) {
	err = this.db.QueryRowContext(ctx, SessionData, id).Scan(&name, &data)
	return name, data, notFound(err)
}

func (this *Store) InsertSession(ctx context.Context, session *Session) (int, error) {
	cols := []string{"name", "timestamp", "description", "data"}
	vals, err := scan.Values(cols, session)
	if err != nil {
		return 0, err
	}
	var lastInsertedId int
	if err := this.db.QueryRowContext(ctx, InsertSession, vals...).Scan(&lastInsertedId); err != nil {
		return 0, err
	}
	session.Id = lastInsertedId
	return lastInsertedId, nil
}

func exactlyOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (this *Store) UpdateSession(ctx context.Context, id int64, name, description string) error {
	return exactlyOne(this.db.ExecContext(ctx, UpdateSession, name, description, id))
}

func (this *Store) DeleteSession(ctx context.Context, id int64) error {
	return exactlyOne(this.db.ExecContext(ctx, DeleteSession, id))
}

func (this *Store) CalibrationMethods(ctx context.Context) ([]psst.CalibrationMethod, error) {
	rows, err := this.db.QueryContext(ctx, CalibrationMethods)
	if err != nil {
		return nil, err
	}
	var cms []psst.CalibrationMethod
	if err := scan.RowsStrict(&cms, rows); err != nil {
		return nil, err
	}
	for idx := range cms {
		if err := cms[idx].ProcessRawData(); err != nil {
			return nil, fmt.Errorf("calibration method %s: %w", cms[idx].Id, err)
		}
	}
	return cms, nil
}

func (this *Store) CalibrationMethod(ctx context.Context, id uuid.UUID) (*psst.CalibrationMethod, error) {
	rows, err := this.db.QueryContext(ctx, CalibrationMethod, id)
	if err != nil {
		return nil, err
	}
	var cm psst.CalibrationMethod
	if err := scan.RowStrict(&cm, rows); err != nil {
		return nil, notFound(err)
	}
	if err := cm.ProcessRawData(); err != nil {
		return nil, err
	}
	return &cm, nil
}

// InsertCalibrationMethod compiles the method before storing it, and assigns
// it a new id when it has none.
func (this *Store) InsertCalibrationMethod(ctx context.Context, cm *psst.CalibrationMethod) error {
	if err := cm.Compile(); err != nil {
		return err
	}
	if err := cm.DumpRawData(); err != nil {
		return err
	}
	if cm.Id == uuid.Nil {
		cm.Id = uuid.New()
	}
	vals, err := scan.Values([]string{"id", "name", "description", "data"}, cm)
	if err != nil {
		return err
	}
	_, err = this.db.ExecContext(ctx, InsertCalibrationMethod, vals...)
	return err
}

func (this *Store) DeleteCalibrationMethod(ctx context.Context, id uuid.UUID) error {
	return exactlyOne(this.db.ExecContext(ctx, DeleteCalibrationMethod, id))
}
