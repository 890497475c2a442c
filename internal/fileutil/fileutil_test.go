package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStreamToNewFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "upload.mp4")
	written, err := StreamToNewFile(strings.NewReader("hello world"), dst, 0o644)
	if err != nil {
		t.Fatalf("StreamToNewFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" || written.Size != 11 {
		t.Fatalf("unexpected content %q size %d", got, written.Size)
	}
	sum := sha256.Sum256([]byte("hello world"))
	if written.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("checksum mismatch: %s", written.SHA256)
	}
}

func TestStreamToNewFileRefusesExisting(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "taken.mp4")
	if err := os.WriteFile(dst, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := StreamToNewFile(strings.NewReader("new"), dst, 0o644); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "original" {
		t.Fatalf("existing file was modified: %q", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestStreamToNewFileRemovesPartial(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "partial.mp4")
	if _, err := StreamToNewFile(failingReader{}, dst, 0o644); err == nil {
		t.Fatal("expected read error")
	}
	if _, err := os.Stat(dst); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.srt")
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("file still present")
	}
}
