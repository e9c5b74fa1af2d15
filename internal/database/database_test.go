package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := Open(Config{Path: filepath.Join(t.TempDir(), "fence.db")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := openTemp(t)
	m := NewMigrationManager(conn)

	applied, err := m.RunMigrations(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	// Second run is a no-op
	applied, err = m.RunMigrations(ctx)
	require.NoError(t, err)
	require.Zero(t, applied)

	for _, table := range []string{"project_regions", "electronic_fences", "devices", "alarm_records"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestPendingAlarmUniqueIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := openTemp(t)
	_, err := NewMigrationManager(conn).RunMigrations(ctx)
	require.NoError(t, err)

	_, err = conn.Exec(`INSERT INTO electronic_fences (name, coordinates_json, created_at, updated_at) VALUES ('f', '[]', 0, 0)`)
	require.NoError(t, err)

	insert := `INSERT INTO alarm_records (device_id, fence_id, alarm_type, status, created_at) VALUES ('d1', 1, 'FENCE_EXIT', ?, 0)`
	_, err = conn.Exec(insert, "pending")
	require.NoError(t, err)
	_, err = conn.Exec(insert, "pending")
	require.Error(t, err)

	// Resolved history does not collide
	_, err = conn.Exec(insert, "resolved")
	require.NoError(t, err)
	_, err = conn.Exec(insert, "resolved")
	require.NoError(t, err)
}

func TestWithTx_Rollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := openTemp(t)
	_, err := conn.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO kv (k) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	require.Zero(t, n)
}
