package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEntries returns every row of the submissions table in insertion order.
func readEntries(t *testing.T, rec Recorder) []Entry {
	t.Helper()
	repo, ok := rec.(*sqliteRepository)
	require.True(t, ok)

	rows, err := repo.db.QueryContext(context.Background(),
		`SELECT sent_at, payload, outcome, error FROM submissions ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			sentAt  int64
			outcome string
			entry   Entry
		)
		require.NoError(t, rows.Scan(&sentAt, &entry.Payload, &outcome, &entry.Error))
		entry.SentAt = time.UnixMilli(sentAt).UTC()
		entry.Outcome = Outcome(outcome)
		entries = append(entries, entry)
	}
	require.NoError(t, rows.Err())
	return entries
}

func TestRecordAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	rec, err := Open(path)
	require.NoError(t, err)
	defer rec.Close()

	at := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, Entry{
		SentAt:  at,
		Payload: `{"temperature":"23.45","humidity":"65.10"}`,
		Outcome: OutcomeSent,
	}))
	require.NoError(t, rec.Record(ctx, Entry{
		SentAt:  at.Add(5 * time.Second),
		Payload: `{"temperature":"30.01","humidity":"70.00"}`,
		Outcome: OutcomeFailed,
		Error:   "connection lost",
	}))

	entries := readEntries(t, rec)
	require.Len(t, entries, 2)

	assert.Equal(t, at, entries[0].SentAt)
	assert.Equal(t, OutcomeSent, entries[0].Outcome)
	assert.Empty(t, entries[0].Error)
	assert.Equal(t, OutcomeFailed, entries[1].Outcome)
	assert.Equal(t, "connection lost", entries[1].Error)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	rec, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, Entry{SentAt: time.Now(), Payload: "{}", Outcome: OutcomeSkipped}))
	require.NoError(t, rec.Close())

	rec, err = Open(path)
	require.NoError(t, err)
	defer rec.Close()

	assert.Len(t, readEntries(t, rec), 1)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.True(t, errors.HasCode(err, errors.ErrJournalInit))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Record(context.Background(), Entry{}))
	assert.NoError(t, Discard.Close())
}
