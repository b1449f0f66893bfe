package blobstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/blobstore"
	"github.com/dalemusser/waffle/pantry/storage"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.JPG", "photo.jpg"},
		{"Manhole Cover (1).png", "manhole-cover-1-.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\jane\IMG_0042.jpeg`, "img_0042.jpeg"},
		{"ñandú.png", "and-.png"},
		{"???", "file"},
		{"", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := blobstore.SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrderImageKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.FixedZone("UTC-5", -5*60*60))
	key := blobstore.OrderImageKey(at, "Wet Well.jpg")

	re := regexp.MustCompile(`^workorders/2024/03/[0-9a-f-]{8}-wet-well\.jpg$`)
	if !re.MatchString(key) {
		t.Errorf("key %q does not match %s", key, re)
	}
	// 23:00 at UTC-5 is already March 10 in UTC; month still March.
	if other := blobstore.OrderImageKey(at, "Wet Well.jpg"); other == key {
		t.Error("two keys for the same name should differ")
	}
}

func TestOrderImageKey_StoresUnderLocalRoot(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocal(storage.LocalConfig{BasePath: root, BaseURL: "/files/"})
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	ctx := context.Background()

	key := blobstore.OrderImageKey(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), "../Pit 7.JPG")
	if err := store.Put(ctx, key, strings.NewReader("jpegdata"), &storage.PutOptions{ContentType: "image/jpeg"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := store.URL(key); got != "/files/"+key {
		t.Errorf("URL = %q, want %q", got, "/files/"+key)
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	if err != nil || string(data) != "jpegdata" {
		t.Fatalf("stored file = %q, %v", data, err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete: expected ErrNotFound, got %v", err)
	}
}
