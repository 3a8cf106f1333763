package constraint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSet = `version: "1"
constraints:
  - name: budget-cap
    description: No decision may commit spend beyond the approved quarter budget.
    type: financial
    immutable: true
  - name: data-residency
    description: Customer data stays in-region.
    type: compliance
    immutable: true
`

func writeSet(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "constraints.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	loaded, err := Load(writeSet(t, sampleSet))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Set.Constraints) != 2 {
		t.Fatalf("expected 2 constraints, got %+v", loaded.Set)
	}
	if !strings.HasPrefix(loaded.Hash, "sha256:") || len(loaded.Hash) != len("sha256:")+64 {
		t.Fatalf("bad content hash: %q", loaded.Hash)
	}
	if c, ok := loaded.ByName("budget-cap"); !ok || c.Type != "financial" || !c.Immutable {
		t.Fatalf("lookup wrong: %+v ok=%v", c, ok)
	}
	if _, ok := loaded.ByName("nope"); ok {
		t.Fatalf("unknown name resolved")
	}
}

func TestLoadHashTracksContents(t *testing.T) {
	a, err := Load(writeSet(t, sampleSet))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, err := Load(writeSet(t, sampleSet+"# trailing comment\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Hash == b.Hash {
		t.Fatalf("different bytes must hash differently")
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	dup := `constraints:
  - name: budget-cap
  - name: budget-cap
`
	if _, err := Load(writeSet(t, dup)); err == nil {
		t.Fatalf("duplicate names accepted")
	}
}

func TestLoadRejectsMissingName(t *testing.T) {
	if _, err := Load(writeSet(t, "constraints:\n  - description: x\n")); err == nil {
		t.Fatalf("nameless constraint accepted")
	}
}
