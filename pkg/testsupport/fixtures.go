package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Fixture reads testdata/name of the package under test.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// JSONFixture decodes testdata/name into a T.
func JSONFixture[T any](t testing.TB, name string) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(Fixture(t, name), &v); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return v
}

// TempFile writes data to name inside a fresh temporary directory and
// returns the full path.
func TempFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
