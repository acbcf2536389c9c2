package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
)

const defaultDirPerm = 0o755

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the SQLite journal at path.
func Open(path string) (Recorder, error) {
	if path == "" {
		return nil, errors.Newf(errors.ErrJournalInit, "journal path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errors.Wrap(errors.ErrJournalInit, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrJournalInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) Record(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (sent_at, payload, outcome, error) VALUES (?, ?, ?, ?)`,
		entry.SentAt.UnixMilli(), entry.Payload, string(entry.Outcome), entry.Error)
	if err != nil {
		return errors.Wrap(errors.ErrJournalWrite, err)
	}
	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.Wrap(errors.ErrJournalClose, err)
	}
	return nil
}
