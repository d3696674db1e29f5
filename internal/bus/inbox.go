// internal/bus/inbox.go
package bus

import "sync/atomic"

type message struct {
	topic   string
	payload string
}

// inbox decouples broker callbacks from the scheduling loop.
// push never blocks: when full, the incoming message is dropped.
type inbox struct {
	ch      chan message
	dropped atomic.Uint64
}

func newInbox(size int) *inbox {
	return &inbox{ch: make(chan message, size)}
}

func (in *inbox) push(topic, payload string) bool {
	select {
	case in.ch <- message{topic: topic, payload: payload}:
		return true
	default:
		in.dropped.Add(1)
		return false
	}
}

func (in *inbox) pop() (string, string, bool) {
	select {
	case m := <-in.ch:
		return m.topic, m.payload, true
	default:
		return "", "", false
	}
}
