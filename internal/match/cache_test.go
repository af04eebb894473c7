package match

import (
	"testing"

	"github.com/park285/tsc-client/pkg/tscproto"
)

func TestCacheReplaceIsWholesale(t *testing.T) {
	c := NewCache()
	if c.Current() != nil || c.MatchID() != "" {
		t.Fatalf("new cache must be empty")
	}
	a := newSnapshot(tscproto.ModeTeam, 1, tscproto.White)
	a.Termination = "from-a"
	c.Replace(a)

	b := newSnapshot(tscproto.ModeSolo, 2, tscproto.Black)
	b.MatchID = "m-2"
	c.Replace(b)

	got := c.Current()
	if got != b {
		t.Fatalf("expected snapshot B to be current")
	}
	if got.Termination != "" || got.Mode != tscproto.ModeSolo || c.MatchID() != "m-2" {
		t.Fatalf("fields of A survived: %+v", got)
	}
	c.Clear()
	if c.Current() != nil {
		t.Fatalf("clear must drop the snapshot")
	}
}
