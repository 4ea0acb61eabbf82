package sqlite

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsAreDbmateFiles(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(GetMigrationsFS(), "migrations")
	if err != nil {
		t.Fatalf("failed to read migrations directory: %v", err)
	}

	if len(entries) == 0 {
		t.Fatal("migrations directory is empty")
	}

	prev := ""

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			t.Errorf("unexpected file %s", name)
		}

		if name < prev {
			t.Errorf("migrations out of order: %s after %s", name, prev)
		}

		prev = name

		content, err := fs.ReadFile(GetMigrationsFS(), "migrations/"+name)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}

		for _, marker := range []string{"-- migrate:up", "-- migrate:down"} {
			if !strings.Contains(string(content), marker) {
				t.Errorf("%s is missing %q", name, marker)
			}
		}
	}
}
