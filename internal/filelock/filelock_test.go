package filelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestLockCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "dir", "report.json")
	lock := New(target)

	if err := lock.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(target + ".lock"); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestLockHonorsContext(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.json")
	holder := New(target)
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := New(target).Lock(ctx)
	if err == nil {
		t.Fatal("Lock() should fail while another holder has the lock")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() error = %v, want deadline exceeded", err)
	}
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "report.json")

	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("permissions = %o, want 0644", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	var seen [][]byte
	appendX := func(current []byte) ([]byte, error) {
		seen = append(seen, current)
		return append(current, 'x'), nil
	}

	for i := 0; i < 2; i++ {
		if err := Update(context.Background(), path, appendX); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	if seen[0] != nil {
		t.Errorf("first Update should see nil contents, got %q", seen[0])
	}
	if string(seen[1]) != "x" {
		t.Errorf("second Update saw %q, want %q", seen[1], "x")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "xx" {
		t.Errorf("content = %q, want %q", data, "xx")
	}
}

func TestUpdateCallbackErrorLeavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := AtomicWrite(path, []byte("keep")); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}

	boom := errors.New("boom")
	err := Update(context.Background(), path, func([]byte) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Update() error = %v, want %v", err, boom)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "keep" {
		t.Errorf("content = %q, want %q", data, "keep")
	}
}

func TestConcurrentUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")

	const goroutines = 5
	const iterations = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				err := Update(context.Background(), path, func(current []byte) ([]byte, error) {
					n, _ := strconv.Atoi(string(current))
					return []byte(strconv.Itoa(n + 1)), nil
				})
				if err != nil {
					t.Errorf("Update() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read final counter: %v", err)
	}
	if string(data) != strconv.Itoa(goroutines*iterations) {
		t.Errorf("counter = %s, want %d (race condition detected)", data, goroutines*iterations)
	}
}
