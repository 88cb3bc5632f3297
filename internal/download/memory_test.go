package download

import (
	"context"
	"testing"
	"time"
)

func newTestEntry(id string) *FileEntry {
	return &FileEntry{
		ID:           id,
		Path:         "/tmp/audiofetch/ws-1/song.mp3",
		Title:        "song",
		Format:       FormatMP3,
		WorkspaceID:  "ws-1",
		WorkspaceDir: "/tmp/audiofetch/ws-1",
		CreatedAt:    time.Unix(1700000000, 0),
		ExpiresAt:    time.Unix(1700003600, 0),
	}
}

func TestMemoryRegistry_Save(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	entry := newTestEntry("a")

	if err := reg.Save(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := reg.FindByID(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Path != entry.Path {
		t.Errorf("expected path %s, got %s", entry.Path, saved.Path)
	}
}

func TestMemoryRegistry_FindByID_NotFound(t *testing.T) {
	reg := NewMemoryRegistry()

	_, err := reg.FindByID(context.Background(), "nonexistent")
	if err != ErrFileNotFound {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestMemoryRegistry_FindByID_ReturnsClone(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	_ = reg.Save(ctx, newTestEntry("a"))

	found, _ := reg.FindByID(ctx, "a")
	found.Path = "/etc/passwd"

	original, _ := reg.FindByID(ctx, "a")
	if original.Path == "/etc/passwd" {
		t.Error("modifying returned entry should not affect registry")
	}
}

func TestMemoryRegistry_ListExpired(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	expired := newTestEntry("expired")
	fresh := newTestEntry("fresh")
	fresh.ExpiresAt = time.Unix(1800000000, 0)
	forever := newTestEntry("forever")
	forever.ExpiresAt = time.Time{}

	for _, e := range []*FileEntry{expired, fresh, forever} {
		_ = reg.Save(ctx, e)
	}

	list, err := reg.ListExpired(ctx, time.Unix(1700003600, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != "expired" {
		t.Errorf("expected only the expired entry, got %v", list)
	}
}

func TestMemoryRegistry_Delete(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	_ = reg.Save(ctx, newTestEntry("a"))

	if err := reg.Delete(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.FindByID(ctx, "a"); err != ErrFileNotFound {
		t.Errorf("expected ErrFileNotFound after delete, got %v", err)
	}
	if err := reg.Delete(ctx, "a"); err != ErrFileNotFound {
		t.Errorf("expected ErrFileNotFound on second delete, got %v", err)
	}
}

func TestMemoryRegistry_Concurrency(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 100; i++ {
		go func(i int) {
			e := newTestEntry(string(rune('a' + i%26)))
			_ = reg.Save(ctx, e)
			_, _ = reg.FindByID(ctx, e.ID)
			_, _ = reg.ListExpired(ctx, time.Now())
			done <- true
		}(i)
	}
	for i := 0; i < 100; i++ {
		<-done
	}
}

func TestFileEntry_Expired(t *testing.T) {
	e := newTestEntry("a")
	if e.Expired(e.ExpiresAt.Add(-time.Second)) {
		t.Error("entry should not be expired before ExpiresAt")
	}
	if !e.Expired(e.ExpiresAt) {
		t.Error("entry should be expired at ExpiresAt")
	}

	e.ExpiresAt = time.Time{}
	if e.Expired(time.Unix(1<<40, 0)) {
		t.Error("entry without expiry should never expire")
	}
}

func TestFileEntry_FileNameAndWorkspace(t *testing.T) {
	e := newTestEntry("a")
	if e.FileName() != "song.mp3" {
		t.Errorf("expected song.mp3, got %s", e.FileName())
	}
	ws := e.Workspace()
	if ws.ID != "ws-1" || ws.Dir != "/tmp/audiofetch/ws-1" {
		t.Errorf("unexpected workspace %+v", ws)
	}
}
