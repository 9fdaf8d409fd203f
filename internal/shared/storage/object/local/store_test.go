package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "job-1", "clip.mp4", strings.NewReader("fake video bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len("fake video bytes")) {
		t.Fatalf("expected size %d, got %d", len("fake video bytes"), size)
	}
	if mime == "" {
		t.Fatal("expected sniffed mime type")
	}
	if !strings.Contains(key, "clip.mp4") {
		t.Fatalf("expected file name in key, got %q", key)
	}

	body, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	_ = body.Close()
	if string(data) != "fake video bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Fatal("expected open to fail after delete")
	}
}

func TestDeleteMissingObjectIsNoop(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Delete(context.Background(), "abc/def_clip.mp4"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestSaveRejectsTraversalName(t *testing.T) {
	store := New(t.TempDir())
	if _, _, _, err := store.Save(context.Background(), "job-1", "../escape.mp4", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal name to be rejected")
	}
}

func TestOpenRejectsTraversalKey(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../secret", "/etc/passwd"} {
		if _, err := store.Open(context.Background(), key); err == nil {
			t.Fatalf("expected traversal key %q to be rejected", key)
		}
	}
}
