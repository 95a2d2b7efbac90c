package action

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	plog "github.com/ayusman/pryvit/internal/log"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return string(data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s was not written", path)
	return ""
}

func TestExecutor_OpenURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	marker := filepath.Join(tmpDir, "opened")
	opener := writeScript(t, tmpDir, "opener.sh", "echo \"$1\" > "+marker+"\n")

	e := NewExecutor(WithOpener(opener), WithLogger(plog.Nop()))
	if err := e.OpenURL("https://www.youtube.com"); err != nil {
		t.Fatalf("OpenURL() failed: %v", err)
	}
	e.Wait()

	if got := waitForFile(t, marker); got != "https://www.youtube.com\n" {
		t.Errorf("expected url passed to opener, got %q", got)
	}
}

func TestExecutor_OpenURL_Errors(t *testing.T) {
	e := NewExecutor(WithOpener(filepath.Join(t.TempDir(), "does-not-exist")), WithLogger(plog.Nop()))

	if err := e.OpenURL("https://www.youtube.com"); err == nil {
		t.Error("expected error for missing opener")
	}
	if err := e.OpenURL(""); err == nil {
		t.Error("expected error for empty url")
	}
	if err := NewExecutor(WithOpener()).OpenURL("https://x"); err == nil {
		t.Error("expected error for empty opener")
	}
}

func TestExecutor_OpenTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	opener := writeScript(t, t.TempDir(), "slow.sh", "exec sleep 10\n")
	e := NewExecutor(WithOpener(opener), WithOpenTimeout(100*time.Millisecond), WithLogger(plog.Nop()))

	start := time.Now()
	if err := e.OpenURL("https://www.youtube.com"); err != nil {
		t.Fatalf("OpenURL() failed: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("OpenURL should not wait for the opener")
	}

	e.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("slow opener was not killed, took %v", elapsed)
	}
}

func TestExecutor_Launch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	marker := filepath.Join(tmpDir, "launched")
	app := writeScript(t, tmpDir, "calculator.sh", "echo ok > "+marker+"\n")

	e := NewExecutor(WithLogger(plog.Nop()))
	if err := e.Launch(app); err != nil {
		t.Fatalf("Launch() failed: %v", err)
	}
	e.Wait()

	if got := waitForFile(t, marker); got != "ok\n" {
		t.Errorf("unexpected marker content %q", got)
	}
}

func TestExecutor_WaitIgnoresLaunchedApplications(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	app := writeScript(t, t.TempDir(), "telegram.sh", "exec sleep 5\n")
	e := NewExecutor(WithLogger(plog.Nop()))
	if err := e.Launch(app); err != nil {
		t.Fatalf("Launch() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked on a running application")
	}
}

func TestExecutor_Launch_NotFound(t *testing.T) {
	e := NewExecutor(WithLogger(plog.Nop()))

	for _, path := range []string{"", filepath.Join(t.TempDir(), "no-such-app")} {
		if err := e.Launch(path); !errors.Is(err, ErrNoApplication) {
			t.Errorf("Launch(%q): expected ErrNoApplication, got %v", path, err)
		}
	}
}

func TestExecutor_FailingActionDoesNotError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	app := writeScript(t, t.TempDir(), "broken.sh", "echo boom >&2\nexit 1\n")
	e := NewExecutor(WithLogger(plog.Nop()))
	if err := e.Launch(app); err != nil {
		t.Fatalf("Launch() should succeed once started: %v", err)
	}
	e.Wait()
}

func TestDefaultOpener(t *testing.T) {
	tests := map[string]string{
		"linux":   "xdg-open",
		"darwin":  "open",
		"windows": "rundll32",
		"freebsd": "xdg-open",
	}
	for goos, want := range tests {
		if got := DefaultOpener(goos)[0]; got != want {
			t.Errorf("DefaultOpener(%q) = %q, want %q", goos, got, want)
		}
	}
}
