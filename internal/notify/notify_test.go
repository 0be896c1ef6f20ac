package notify

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

type captureSink struct {
	name string
	msgs []string
	err  error
}

func (c *captureSink) Name() string { return c.name }

func (c *captureSink) Send(msg string) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	broken := &captureSink{name: "broken", err: errors.New("down")}
	ok := &captureSink{name: "ok"}
	f := NewFanout(slog.New(slog.NewTextHandler(io.Discard, nil)), 10, broken)
	f.Add(ok)

	f.Notify("Marco Rossi joined User FC.")
	if len(broken.msgs) != 1 || len(ok.msgs) != 1 {
		t.Fatalf("a failing sink must not block the others: %v %v", broken.msgs, ok.msgs)
	}
}

func TestFanoutRecentIsBounded(t *testing.T) {
	f := NewFanout(slog.New(slog.NewTextHandler(io.Discard, nil)), 3)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		f.Notify(m)
	}
	got := f.Recent(0)
	if len(got) != 3 || got[0].Text != "c" || got[2].Text != "e" {
		t.Fatalf("unexpected recent messages %+v", got)
	}
	if got := f.Recent(1); len(got) != 1 || got[0].Text != "e" {
		t.Fatalf("recent(1) got %+v", got)
	}
}
