package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	giveapp "github.com/Chriskfigures777/give-app-sub003"
	_ "github.com/mattn/go-sqlite3"
)

func TestTreesCarryMatchingVersions(t *testing.T) {
	trees, err := Trees()
	if err != nil {
		t.Fatalf("trees: %v", err)
	}
	if len(trees) != 2 {
		t.Fatalf("expected 2 trees, got %d", len(trees))
	}
	want := []string{"00001_reconcile_core_schema", "00002_reconcile_unreconciled_index"}
	for _, tree := range trees {
		if !slices.Equal(tree.Versions, want) {
			t.Fatalf("%s: unexpected versions %v", tree.Dialect, tree.Versions)
		}
	}
}

func TestTreesRejectMissingDown(t *testing.T) {
	root := fstest.MapFS{
		"data/sql/migrations/00001_a.up.sql":        {Data: []byte("SELECT 1;")},
		"data/sql/migrations/00001_a.down.sql":      {Data: []byte("SELECT 1;")},
		"data/sql/migrations/sqlite/00001_a.up.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := Trees(root); err == nil || !strings.Contains(err.Error(), "no down migration") {
		t.Fatalf("expected missing down error, got %v", err)
	}
}

func TestTreesRejectDivergentDialects(t *testing.T) {
	root := fstest.MapFS{
		"data/sql/migrations/00001_a.up.sql":          {Data: []byte("SELECT 1;")},
		"data/sql/migrations/00001_a.down.sql":        {Data: []byte("SELECT 1;")},
		"data/sql/migrations/00002_b.up.sql":          {Data: []byte("SELECT 1;")},
		"data/sql/migrations/00002_b.down.sql":        {Data: []byte("SELECT 1;")},
		"data/sql/migrations/sqlite/00001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"data/sql/migrations/sqlite/00001_a.down.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := Trees(root); err == nil || !strings.Contains(err.Error(), "diverge") {
		t.Fatalf("expected divergence error, got %v", err)
	}
}

func TestRegisterSelectsDialect(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithDialects(" SQLite "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(calls) != 1 || calls[0] != DialectSQLite {
		t.Fatalf("expected a single sqlite registration, got %v", calls)
	}
	if reg.SourceLabel != "give-reconciler" {
		t.Fatalf("unexpected source label %q", reg.SourceLabel)
	}
	if len(reg.Registered(DialectSQLite)) != 2 || reg.Registered(DialectPostgres) != nil {
		t.Fatalf("unexpected registered versions %+v", reg)
	}
}

func TestRegisterRejectsUnknownDialect(t *testing.T) {
	_, err := Register(context.Background(), func(context.Context, string, string, fs.FS) error { return nil }, WithDialects("mysql"))
	if err == nil {
		t.Fatalf("expected unknown dialect error")
	}
}

func TestRegisterRequiresFunction(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected error without register function")
	}
}

func TestSQLiteCoreSchema_EnforcesNaturalKeys(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:migrations-core-schema?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(giveapp.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	for _, migration := range []string{
		"00001_reconcile_core_schema.up.sql",
		"00002_reconcile_unreconciled_index.up.sql",
	} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply %s: %v", migration, err)
		}
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO organizations (id, name) VALUES ('org_1', 'Grace')`); err != nil {
		t.Fatalf("insert organization: %v", err)
	}
	insertDonation := `INSERT INTO donations (id, organization_id, amount_cents, currency, external_payment_id, status)
		VALUES (?, 'org_1', 1000, 'usd', ?, 'succeeded')`
	if _, err := db.ExecContext(ctx, insertDonation, "don_1", "pi_1"); err != nil {
		t.Fatalf("insert donation: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertDonation, "don_2", "pi_1"); err == nil {
		t.Fatalf("expected payment id uniqueness")
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO donations (id, organization_id, amount_cents, currency, external_payment_id, status)
		VALUES ('don_3', 'org_missing', 1000, 'usd', 'pi_3', 'succeeded')`); err == nil {
		t.Fatalf("expected organization foreign key")
	}

	insertDispatch := `INSERT INTO notification_dispatches (id, dispatch_key, kind, recipient, status) VALUES (?, ?, 'donor_receipt', 'a@example.com', 'sent')`
	if _, err := db.ExecContext(ctx, insertDispatch, "nd_1", "donor_receipt:pi_1"); err != nil {
		t.Fatalf("insert dispatch: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertDispatch, "nd_2", "donor_receipt:pi_1"); err == nil {
		t.Fatalf("expected dispatch key uniqueness")
	}

	for _, migration := range []string{
		"00002_reconcile_unreconciled_index.down.sql",
		"00001_reconcile_core_schema.down.sql",
	} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply %s: %v", migration, err)
		}
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='donations'`).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected donations dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
