package storage

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("pending/operations", []byte(`[]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := store.Get("pending/operations")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `[]` {
		t.Fatalf("Get = %q, want []", data)
	}

	if err := store.Delete("pending/operations"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get("pending/operations"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("flags/offline_mode"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestFileStore_DeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("snapshot/feed"); err != nil {
		t.Fatalf("Delete of absent key = %v, want nil", err)
	}
}

func TestFileStore_OverwriteReplacesWhole(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("snapshot/feed", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put("snapshot/feed", []byte("second")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := store.Get("snapshot/feed")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("Get = %q, want second", data)
	}
}

func TestFileStore_KeysByPrefix(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"snapshot/feed", "snapshot/profile", "pending/operations"} {
		if err := store.Put(key, []byte("x")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	keys, err := store.Keys("snapshot/")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"snapshot/feed", "snapshot/profile"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put("../escape", []byte("x")); err == nil {
		t.Fatal("Put with traversal key succeeded, want error")
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "data")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Put("pending/operations", []byte("persisted")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := NewFileStore(fs, "data")
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	data, err := reopened.Get("pending/operations")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(data) != "persisted" {
		t.Fatalf("Get = %q, want persisted", data)
	}
}
