package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatsheet/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	errs := []internal.ValidationError{
		{Type: internal.ApartmentSheetError, Message: "Flat - Intercom length does not match at row 4.", Row: 4},
		{Type: internal.FlatOwnerError, Message: "Flat not found for block - A and flat - 101.", Row: 4},
	}
	run := internal.RunRecord{ID: "run-1", Identifier: "greenwood", Source: "cli", Status: internal.RunFailed}
	require.NoError(t, db.InsertRun(run, errs))

	got, err := db.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "greenwood", got.Identifier)
	assert.Equal(t, internal.RunFailed, got.Status)
	assert.Equal(t, 2, got.ErrorCount)
	assert.Empty(t, got.Outputs)

	stored, err := db.GetRunErrors("run-1")
	require.NoError(t, err)
	assert.Equal(t, errs, stored)

	missing, err := db.GetRun("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertRun(internal.RunRecord{ID: "a", Identifier: "one", Source: "cli", Status: internal.RunExported, Outputs: []string{"one - Area.csv"}}, nil))
	require.NoError(t, db.InsertRun(internal.RunRecord{ID: "b", Identifier: "two", Source: "cli", Status: internal.RunError, Detail: "schema"}, nil))

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, []string{"one - Area.csv"}, runs[1].Outputs)

	runs, err = db.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestEmailLifecycle(t *testing.T) {
	db := openTestDB(t)

	email, err := db.UpsertEmail("imap", "<m1@example.com>", "Roster", "admin@example.com", "2026-10-01T10:00:00Z", "hash", "/tmp/m1.eml", "fetched")
	require.NoError(t, err)
	assert.Equal(t, "fetched", email.Status)

	again, err := db.UpsertEmail("imap", "<m1@example.com>", "Roster v2", "admin@example.com", "2026-10-01T10:00:00Z", "hash2", "/tmp/m1.eml", "fetched")
	require.NoError(t, err)
	assert.Equal(t, email.ID, again.ID)
	assert.Equal(t, "Roster v2", again.Subject)

	pending, err := db.ListEmailsByStatus("fetched", "", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, db.UpdateEmailStatus(email.ID, "processed"))
	byID, err := db.GetEmailByID(email.ID)
	require.NoError(t, err)
	assert.Equal(t, "processed", byID.Status)

	_, err = db.MustEmailByProviderMessageID("imap", "<other@example.com>")
	require.Error(t, err)
}

func TestListEmailsByStatusFiltersProviderBeforeLimit(t *testing.T) {
	db := openTestDB(t)

	for i, received := range []string{"2026-10-01T08:00:00Z", "2026-10-01T09:00:00Z"} {
		_, err := db.UpsertEmail("gmail", fmt.Sprintf("<old%d@example.com>", i), "", "", received, "h", "/tmp/old.eml", "fetched")
		require.NoError(t, err)
	}
	_, err := db.UpsertEmail("imap", "<new@example.com>", "", "", "2026-10-02T08:00:00Z", "h", "/tmp/new.eml", "fetched")
	require.NoError(t, err)

	imapOnly, err := db.ListEmailsByStatus("fetched", "imap", 1)
	require.NoError(t, err)
	require.Len(t, imapOnly, 1)
	assert.Equal(t, "<new@example.com>", imapOnly[0].MessageID)

	all, err := db.ListEmailsByStatus("fetched", "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "<old0@example.com>", all[0].MessageID)
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetMetadata("listener.last_cycle")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetMetadata("listener.last_cycle", "2026-10-19T00:00:00Z"))
	v, err = db.GetMetadata("listener.last_cycle")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "2026-10-19T00:00:00Z", *v)
}
