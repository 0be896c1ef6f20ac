package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Sink is one delivery channel for user-facing messages.
type Sink interface {
	Send(msg string) error
	Name() string
}

// Fanout delivers every message to all sinks and keeps the latest messages
// in memory for the API. It implements market.Notifier.
type Fanout struct {
	mu     sync.Mutex
	log    *slog.Logger
	sinks  []Sink
	recent []Message
	limit  int
	now    func() time.Time
}

type Message struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

func NewFanout(logger *slog.Logger, limit int, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 50
	}
	return &Fanout{log: logger, sinks: sinks, limit: limit, now: time.Now}
}

func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Notify never fails; sink errors are logged.
func (f *Fanout) Notify(msg string) {
	f.mu.Lock()
	f.recent = append(f.recent, Message{Text: msg, At: f.now().UTC()})
	if over := len(f.recent) - f.limit; over > 0 {
		f.recent = append([]Message(nil), f.recent[over:]...)
	}
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.Unlock()

	f.log.Info("notification", "msg", msg)
	for _, s := range sinks {
		if err := s.Send(msg); err != nil {
			f.log.Warn("notification delivery failed", "sink", s.Name(), "err", err)
		}
	}
}

// Recent returns up to n of the latest messages, oldest first.
func (f *Fanout) Recent(n int) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= 0 || n > len(f.recent) {
		n = len(f.recent)
	}
	return append([]Message(nil), f.recent[len(f.recent)-n:]...)
}
