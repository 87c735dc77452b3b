package collector

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCurFreq(t *testing.T, root, core, khz string) {
	t.Helper()
	dir := filepath.Join(root, "devices", "system", "cpu", core, "cpufreq")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scaling_cur_freq"), []byte(khz+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCurrentMHz(t *testing.T) {
	root := t.TempDir()
	writeCurFreq(t, root, "cpu0", "2400000")
	writeCurFreq(t, root, "cpu1", "garbage")
	s := NewPSSampler(root)

	if got := s.currentMHz("cpu0"); got != 2400 {
		t.Errorf("cpu0 = %d MHz, want 2400", got)
	}
	if got := s.currentMHz("cpu1"); got != 0 {
		t.Errorf("unparsable cpu1 = %d, want 0", got)
	}
	if got := s.currentMHz("cpu7"); got != 0 {
		t.Errorf("missing cpu7 = %d, want 0", got)
	}
	if got := s.currentMHz("cpu-total"); got != 0 {
		t.Errorf("cpu-total = %d, want 0", got)
	}
	if got := NewPSSampler("").currentMHz("cpu0"); got != 0 {
		t.Errorf("no sys root = %d, want 0", got)
	}
}
