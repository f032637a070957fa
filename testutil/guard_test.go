package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		in   string
		want bool
	}{
		{InternalImportForbidden, "tradecore/internal/engine", true},
		{InternalImportForbidden, "tradecore/pkg/domain", false},
		{InternalImportForbidden, "runtime/internal/atomic", false},
		{ServiceImportForbidden, "tradecore/internal/core", true},
		{ServiceImportForbidden, "tradecore/internal/infra/blob/s3", true},
		{ServiceImportForbidden, "tradecore/internal/corelike", false},
		{ServiceImportForbidden, "tradecore/internal/catalog", false},
		{IOImportForbidden, "net/http", true},
		{IOImportForbidden, "net/http/httptrace", true},
		{IOImportForbidden, "net/url", false},
		{IOImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{Any(IOImportForbidden, InternalImportForbidden), "tradecore/internal/x", true},
		{Any(), "net/http", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("predicate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"net/http\"\n)\nvar _ = fmt.Sprint\nvar _ = http.StatusOK\n")
	writeGo(t, dir, "a_test.go", "package tmp\nimport \"database/sql\"\nvar _ sql.DB\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeGo(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"database/sql\"\nvar _ sql.DB\n")

	viols, err := directImportViolations(dir, IOImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "net/http (in a.go)" {
		t.Fatalf("violations = %v", viols)
	}
	AssertNoDirectImports(t, dir, Forbid("database/sql"), "test files and subdirectories are skipped")

	rec := &recordingT{}
	failIfViolations(rec, "forbidden direct imports", "io", viols)
	if !strings.Contains(rec.msg, "net/http (in a.go)") || !strings.Contains(rec.msg, "(io)") {
		t.Fatalf("message = %q", rec.msg)
	}
}

func TestDirectImportViolationsReportsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), IOImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeGo(t, dir, "bad.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, IOImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	old := goListDeps
	defer func() { goListDeps = old }()
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nnet/http\n\ntradecore/pkg/domain\n"), nil
	}
	viols, _, err := transitiveDependencyViolations(".", IOImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "net/http" {
		t.Fatalf("violations = %v, %v", viols, err)
	}
	AssertNoTransitiveDependency(t, ".", InternalImportForbidden, "stubbed")

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations(".", IOImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list error, got %v %q", err, out)
	}
}
