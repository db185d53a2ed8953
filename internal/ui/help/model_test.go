package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/taskboard/internal/keys"
)

func TestViewListsSectionsAndCommands(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 200, 60)

	v := m.View()
	for _, want := range []string{"Keyboard Shortcuts", "Drag", "History", "Commands (:)", "clear-done", "settings"} {
		assert.Contains(t, v, want)
	}
}

func TestEverySectionBindingHasHelp(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)

	for _, s := range m.sections() {
		for _, b := range s.bindings {
			assert.NotEmpty(t, b.Help().Key, "section %s", s.title)
		}
	}
}
