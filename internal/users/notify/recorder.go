package notify

import (
	"context"
	"sync"
)

// Recorder keeps every message in memory. Tests use it to read OTPs back.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message

	// Err, when set, is returned from Send and nothing is recorded.
	Err error
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Last returns the newest message sent to addr.
func (r *Recorder) Last(addr string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].To == addr {
			return r.msgs[i], true
		}
	}
	return Message{}, false
}

// SetErr swaps the injected failure.
func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}
