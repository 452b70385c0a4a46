package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"simcore/internal/core", true},
		{"example.com/mod/internal/x", true},
		{"example.com/mod/pkg/x", false},
		{"notinternal", false},
		{"", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestPersistenceImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"simcore/internal/infra/persistence/sqlite", true},
		{"example.com/mod/persistence", false},
		{"example.com/mod/pkg/model", false},
	}
	for _, c := range cases {
		if got := PersistenceImportForbidden(c.in); got != c.want {
			t.Fatalf("PersistenceImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the success path with a tiny temp
// package whose imports are all allowed.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

func TestDirectImportViolationsReported(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport _ \"simcore/internal/core\"\n")
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 {
		t.Fatalf("expected one violation, got %v", viols)
	}
}

func TestDirectImportViolationsIgnoresTestFiles(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport _ \"simcore/internal/core\"\n")
	if err := os.WriteFile(filepath.Join(dir, "bad_test.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("test files must be skipped, got %v", viols)
	}
}

func TestDirectImportViolationsSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := []byte("package sub\nimport _ \"simcore/internal/core\"\n")
	if err := os.WriteFile(filepath.Join(sub, "bad.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("subdirectories must not be scanned, got %v", viols)
	}
}
