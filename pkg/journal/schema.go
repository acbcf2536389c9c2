package journal

import (
	"database/sql"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
)

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS submissions (
            id      INTEGER PRIMARY KEY AUTOINCREMENT,
            sent_at INTEGER NOT NULL,
            payload TEXT    NOT NULL,
            outcome TEXT    NOT NULL,
            error   TEXT    NOT NULL DEFAULT ''
        )
    `)
	if err != nil {
		return errors.Wrap(errors.ErrJournalInit, err)
	}
	return nil
}
