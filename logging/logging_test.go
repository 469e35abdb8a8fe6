package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterRotatesPastCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	w, err := NewRotatingWriter(path, 64)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	line := bytes.Repeat([]byte("x"), 40)
	if _, err := w.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Fatalf("expected fresh empty log, got %v", err)
	}

	if _, err := w.Write([]byte("after rotate\n")); err != nil {
		t.Fatalf("write after rotate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "after rotate\n" {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestNewRotatingWriterTruncatesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("y"), 200), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := NewRotatingWriter(path, 64)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Fatalf("expected truncated file, size %d err %v", info.Size(), err)
	}
}
