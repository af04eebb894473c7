package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/tsc-client/pkg/tscproto"
)

func exerciseStore(t *testing.T, s CredentialStore) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	if err != nil || got != "" {
		t.Fatalf("empty load = %q, %v", got, err)
	}
	if err := s.Save(ctx, "tok-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := s.Load(ctx); err != nil || got != "tok-1" {
		t.Fatalf("load = %q, %v", got, err)
	}
	if err := s.Save(ctx, "tok-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Load(ctx); got != "tok-2" {
		t.Fatalf("load after overwrite = %q", got)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if got, _ := s.Load(ctx); got != "" {
		t.Fatalf("load after clear = %q", got)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential")
	exerciseStore(t, NewFileStore(path))

	s := NewFileStore(path)
	if err := s.Save(context.Background(), "tok"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	exerciseStore(t, NewRedisStore(rdb, "alice"))

	if err := NewRedisStore(rdb, "").Save(context.Background(), "tok"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v, _ := mr.Get("tsc:credential:default"); v != "tok" {
		t.Fatalf("default profile key = %q", v)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestContext(t *testing.T) {
	c := NewContext()
	if c.Identity() != nil || c.Credential() != "" {
		t.Fatalf("new context must be empty")
	}
	id := &tscproto.Identity{ID: 7, Username: "ana"}
	c.SetIdentity(id)
	c.SetCredential("tok")
	id.Username = "changed"
	if got := c.Identity(); got.Username != "ana" {
		t.Fatalf("identity must be copied, got %+v", got)
	}
	if c.Credential() != "tok" {
		t.Fatalf("credential = %q", c.Credential())
	}
	c.Clear()
	if c.Identity() != nil || c.Credential() != "" {
		t.Fatalf("clear left state behind")
	}
}
