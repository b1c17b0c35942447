package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/garmentflow/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"add orders table":       "add_orders_table",
		"Add-Orders--Table":      "add_orders_table",
		"index tracking_steps":   "index_tracking_steps",
		"  drop legacy column  ": "drop_legacy_column",
		"special!@#$chars":       "specialchars",
		"_leading and trailing_": "leading_and_trailing",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "add order notes index", "Index order notes for seller search")
	require.NoError(t, err)
	assert.Len(t, mf.Version, 14)
	assert.Equal(t, filepath.Join(dir, mf.Version+"_add_order_notes_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, mf.Version+"_add_order_notes_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add order notes index\n")
	assert.Contains(t, string(up), "Index order notes for seller search")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	names, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{mf.Version + "_add_order_notes_index"}, names)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000003_add_products.up.sql":   {},
		"000003_add_products.down.sql": {},
		"000001_init.up.sql":           {},
		"000001_init.down.sql":         {},
		"000002_add_orders.up.sql":     {},
		"README.md":                    {},
		"subdir.up.sql/keep":           {},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_orders", "000003_add_products"}, names)

	missing, err := MissingRollbacks(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_add_orders"}, missing)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations(t *testing.T) {
	ups, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20260301000000_create_order_core",
		"20260301000100_create_outbox_events",
	}, ups)

	missing, err := MissingRollbacks(migrations.FS)
	require.NoError(t, err)
	assert.Empty(t, missing, "every embedded migration needs a rollback")
}
