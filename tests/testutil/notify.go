package testutil

import (
	"sync"

	"github.com/nhle/taskboard/internal/model"
)

// Notifications records every notification it receives.
type Notifications struct {
	mu   sync.Mutex
	list []model.Notification
}

// Notify implements controller.Notifier.
func (n *Notifications) Notify(note model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, note)
}

// All returns the recorded notifications.
func (n *Notifications) All() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notification(nil), n.list...)
}

// Levels returns the level of each recorded notification in order.
func (n *Notifications) Levels() []model.NotificationLevel {
	var out []model.NotificationLevel
	for _, note := range n.All() {
		out = append(out, note.Level)
	}
	return out
}
