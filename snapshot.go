package spotter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MatchSnapshot compares the current transcript against a golden file
// stored in testdata/<sanitized-test-name>/<sanitized-name>.txt.
//
// Set SPOTTER_UPDATE=1 to create or update golden files.
func (s *Session) MatchSnapshot(t testing.TB, name string) {
	t.Helper()
	s.Output().MatchSnapshot(t, name)
}

// MatchSnapshot on Transcript allows snapshotting a previously captured
// transcript.
func (tr *Transcript) MatchSnapshot(t testing.TB, name string) {
	t.Helper()

	dir := filepath.Join("testdata", sanitizeName(t.Name()))
	path := filepath.Join(dir, sanitizeName(name)+".txt")

	// Normalize for stable diffs: trim trailing spaces on each line,
	// drop trailing blank lines, end with a single newline.
	content := normalizeForSnapshot(tr.String())

	if snapshotUpdate() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("spotter: snapshot: failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("spotter: snapshot: failed to write golden file: %v", err)
		}
		return
	}

	golden, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("spotter: snapshot: golden file not found: %s\nRun with SPOTTER_UPDATE=1 to create it.\n\nActual transcript:\n%s", path, content)
		}
		t.Fatalf("spotter: snapshot: failed to read golden file: %v", err)
	}

	if string(golden) != content {
		t.Fatalf("spotter: snapshot: mismatch for %q\nGolden file: %s\nRun with SPOTTER_UPDATE=1 to update.\n\n--- golden ---\n%s\n--- actual ---\n%s",
			name, path, string(golden), content)
	}
}

func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")

	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n") + "\n"
}

// sanitizeName replaces characters that are not filesystem-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

func snapshotUpdate() bool {
	v := os.Getenv("SPOTTER_UPDATE")
	return v == "1" || v == "true" || v == "yes"
}
