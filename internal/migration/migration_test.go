package migration

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no up migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Fatalf("migration %s has no down file", v)
		}
	}
}

func TestSchemaCarriesRatingConstraints(t *testing.T) {
	b, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_rating_schema.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	schema := string(b)
	for _, want := range []string{
		"tariffs_single_default_key",
		"tariffs_name_active_key",
		"rates_tariff_prefix_active_key",
		"destination_groups_name_key",
		"ON DELETE SET NULL",
	} {
		if !strings.Contains(schema, want) {
			t.Fatalf("schema missing %q", want)
		}
	}
}

func TestRunMigrations_RequiresDB(t *testing.T) {
	if err := RunMigrations(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
