package controller

import "github.com/nhle/taskboard/internal/model"

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(model.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(model.Notification)

func (f NotifierFunc) Notify(n model.Notification) { f(n) }

// ChanNotifier buffers notifications on a channel for the UI to drain.
type ChanNotifier struct {
	ch chan model.Notification
}

// NewChanNotifier creates a notifier with room for size pending
// notifications.
func NewChanNotifier(size int) *ChanNotifier {
	if size <= 0 {
		size = 16
	}
	return &ChanNotifier{ch: make(chan model.Notification, size)}
}

// Notify enqueues n, dropping it if the buffer is full.
func (c *ChanNotifier) Notify(n model.Notification) {
	select {
	case c.ch <- n:
	default:
	}
}

// C returns the receive side of the buffer.
func (c *ChanNotifier) C() <-chan model.Notification {
	return c.ch
}
