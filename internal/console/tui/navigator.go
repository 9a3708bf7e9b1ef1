package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
)

// redirectsPendingMsg wakes the program after a redirect was queued from
// outside the update loop.
type redirectsPendingMsg struct{}

// Navigator queues redirects for the App. Redirects raised while the App
// is updating are applied before that update returns; those raised from
// other goroutines wake the program.
type Navigator struct {
	mu      sync.Mutex
	program *tea.Program
	queue   []domain.Redirect
}

func NewNavigator() *Navigator {
	return &Navigator{}
}

// Attach connects the navigator to a running program.
func (n *Navigator) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

func (n *Navigator) Navigate(to domain.Redirect) {
	n.mu.Lock()
	n.queue = append(n.queue, to)
	p := n.program
	n.mu.Unlock()

	if p != nil {
		// Send blocks while the program is inside Update.
		go p.Send(redirectsPendingMsg{})
	}
}

// Drain returns and forgets the queued redirects.
func (n *Navigator) Drain() []domain.Redirect {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	return out
}
