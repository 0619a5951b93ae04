package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func TestNewRotatingWriter(t *testing.T) {
	t.Run("creates log file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "nested", "dir", "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("appends to existing file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		if err := os.WriteFile(logPath, []byte("initial content\n"), 0644); err != nil {
			t.Fatalf("failed to write initial content: %v", err)
		}

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}

		if _, err := rw.Write([]byte("appended content\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_ = rw.Close()

		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(content), "initial content") {
			t.Error("initial content was lost")
		}
		if !strings.Contains(string(content), "appended content") {
			t.Error("appended content was not written")
		}
	})
}

func TestRotatingWriterRotation(t *testing.T) {
	t.Run("rotates when size exceeded", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxBackups: 3})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		rw.maxSizeB = 100

		line := []byte(strings.Repeat("x", 40) + "\n")
		for range 5 {
			if _, err := rw.Write(line); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		_ = rw.Close()

		if _, err := os.Stat(rw.backupPath(1)); os.IsNotExist(err) {
			t.Error("backup file was not created after rotation")
		}
	})

	t.Run("respects backup budget", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxBackups: 2})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		rw.maxSizeB = 50

		for i := range 20 {
			if _, err := rw.Write([]byte(fmt.Sprintf("%02d %s\n", i, strings.Repeat("y", 30)))); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		_ = rw.Close()

		if _, err := os.Stat(rw.backupPath(3)); !os.IsNotExist(err) {
			t.Error("more backups kept than MaxBackups allows")
		}
	})

	t.Run("zero max size disables rotation", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 0, MaxBackups: 3})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}

		for range 100 {
			if _, err := rw.Write([]byte(strings.Repeat("z", 100) + "\n")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		_ = rw.Close()

		if _, err := os.Stat(rw.backupPath(1)); !os.IsNotExist(err) {
			t.Error("rotation happened despite MaxSizeMB of 0")
		}
	})
}

func TestRotatingWriterCompression(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, RotationConfig{MaxBackups: 3, Compress: true})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.maxSizeB = 100

	for range 5 {
		if _, err := rw.Write([]byte(strings.Repeat("c", 40) + "\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	_ = rw.Close()

	// Compression runs asynchronously; poll for the compressed backup.
	gzPath := rw.backupPath(1) + ".gz"
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(gzPath); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatalf("compressed backup not created: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("backup is not valid gzip: %v", err)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("failed to decompress backup: %v", err)
	}
	if !strings.Contains(string(data), "c") {
		t.Error("decompressed backup missing log data")
	}
}

func TestRotatingWriterConcurrency(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, RotationConfig{MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.maxSizeB = 500

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 20 {
				_, _ = rw.Write([]byte(fmt.Sprintf("writer %d line %d\n", n, j)))
			}
		}(i)
	}
	wg.Wait()

	if err := rw.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRotatingWriterClose(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	if err := rw.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}

	if _, err := rw.Write([]byte("after close\n")); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestRotatingWriterSync(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = rw.Close() }()

	if _, err := rw.Write([]byte("synced data\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync failed: %v", err)
	}
}

func TestDefaultRotationConfig(t *testing.T) {
	config := DefaultRotationConfig()
	if config.MaxSizeMB != 10 {
		t.Errorf("MaxSizeMB = %d, want 10", config.MaxSizeMB)
	}
	if config.MaxBackups != 3 {
		t.Errorf("MaxBackups = %d, want 3", config.MaxBackups)
	}
	if config.Compress {
		t.Error("Compress should default to false")
	}
}

func TestRotatingWriterAccessors(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = rw.Close() }()

	if rw.FilePath() != logPath {
		t.Errorf("FilePath() = %q, want %q", rw.FilePath(), logPath)
	}

	data := []byte("size tracking\n")
	if _, err := rw.Write(data); err != nil {
		t.Fatal(err)
	}
	if rw.CurrentSize() != int64(len(data)) {
		t.Errorf("CurrentSize() = %d, want %d", rw.CurrentSize(), len(data))
	}
}
