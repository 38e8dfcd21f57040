package scripthost

import "context"

// Null is a Host that drains the event queue without producing any
// writes. It exists so the core server loop is testable without a real
// script engine wired in.
type Null struct {
	Adapter *Adapter
}

var _ Host = (*Null)(nil)

// Tick drains every pending event and discards it.
func (n *Null) Tick(ctx context.Context) error {
	for {
		if _, ok := n.Adapter.Poll(); !ok {
			return nil
		}
	}
}
