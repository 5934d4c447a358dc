package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDaemonFilesClaimAndRelease(t *testing.T) {
	files := daemonFiles{pid: filepath.Join(t.TempDir(), "run", "rentrolld.pid")}

	release, err := files.claim(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      "127.0.0.1:9999",
		StartedAt: time.Now(),
		Source:    "file:/tmp/ledger.csv",
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	pid, alive, err := files.running()
	if err != nil {
		t.Fatalf("running: %v", err)
	}
	if pid != os.Getpid() || !alive {
		t.Errorf("running = (%d, %v), want (%d, true)", pid, alive, os.Getpid())
	}
	if err := files.ensureStopped(); err == nil {
		t.Error("ensureStopped should fail while this process owns the pid file")
	}

	st, err := files.readState()
	if err != nil {
		t.Fatalf("readState: %v", err)
	}
	if st.Addr != "127.0.0.1:9999" || st.Source != "file:/tmp/ledger.csv" {
		t.Errorf("state = %+v", st)
	}

	release()
	if _, err := os.Stat(files.pid); !os.IsNotExist(err) {
		t.Errorf("pid file still present after release: %v", err)
	}
	if _, err := os.Stat(files.statePath()); !os.IsNotExist(err) {
		t.Errorf("state file still present after release: %v", err)
	}
	if err := files.ensureStopped(); err != nil {
		t.Errorf("ensureStopped with no pid file: %v", err)
	}
}

func TestDaemonFilesInvalidPID(t *testing.T) {
	files := daemonFiles{pid: filepath.Join(t.TempDir(), "rentrolld.pid")}
	if err := os.WriteFile(files.pid, []byte("not-a-pid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := files.running(); err == nil {
		t.Error("expected error for malformed pid file")
	}
}

func TestWithoutDetach(t *testing.T) {
	got := withoutDetach([]string{"daemon", "--detach", "--addr", ":1", "--detach=true"})
	want := []string{"daemon", "--addr", ":1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
