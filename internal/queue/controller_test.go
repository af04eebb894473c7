package queue

import (
	"context"
	"testing"

	"github.com/park285/tsc-client/pkg/tscproto"
)

type sent struct {
	kind    tscproto.IntentKind
	payload any
}

type recordingSender struct{ sent []sent }

func (r *recordingSender) Send(_ context.Context, kind tscproto.IntentKind, payload any) error {
	r.sent = append(r.sent, sent{kind: kind, payload: payload})
	return nil
}

func TestApplyRendersStatus(t *testing.T) {
	c := NewController(nil, nil)

	if got := c.Apply(tscproto.QueueStatusEvent{Status: tscproto.QueueQueued, Mode: tscproto.ModeTeam}); got != "Queued for team…" {
		t.Fatalf("queued text = %q", got)
	}
	if got := c.Apply(tscproto.QueueStatusEvent{Status: tscproto.QueueMatched}); got != "Match found. Joining…" {
		t.Fatalf("matched text = %q", got)
	}
	if got := c.Apply(tscproto.QueueStatusEvent{Status: "bogus"}); got != "Match found. Joining…" {
		t.Fatalf("unknown status must keep text, got %q", got)
	}
	if got := c.Apply(tscproto.QueueStatusEvent{Status: tscproto.QueueIdle}); got != "" || c.Text() != "" {
		t.Fatalf("idle must clear text, got %q", got)
	}
}

func TestJoinClearsTextAndSends(t *testing.T) {
	c := NewController(nil, nil)
	c.Apply(tscproto.QueueStatusEvent{Status: tscproto.QueueQueued, Mode: tscproto.ModeSolo})

	rs := &recordingSender{}
	if err := c.Join(context.Background(), rs, tscproto.ModeSolo, "5+0"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if c.Text() != "" {
		t.Fatalf("join must clear text first, got %q", c.Text())
	}
	if len(rs.sent) != 1 || rs.sent[0].kind != tscproto.IntentQueueJoin {
		t.Fatalf("sent = %+v", rs.sent)
	}
	want := tscproto.QueueJoinIntent{Mode: tscproto.ModeSolo, TimeControl: "5+0"}
	if rs.sent[0].payload != want {
		t.Fatalf("payload = %+v", rs.sent[0].payload)
	}

	if err := c.Leave(context.Background(), rs); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(rs.sent) != 2 || rs.sent[1].kind != tscproto.IntentQueueLeave {
		t.Fatalf("sent = %+v", rs.sent)
	}
}

func TestNilSenderIsNoop(t *testing.T) {
	c := NewController(nil, nil)
	if err := c.Join(context.Background(), nil, tscproto.ModeSolo, "5+0"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := c.Leave(context.Background(), nil); err != nil {
		t.Fatalf("leave: %v", err)
	}
}
