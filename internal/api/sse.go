package api

import "github.com/renderfarm/framefarm/internal/events"

// hub fans events.Bus events out to any number of connected SSE
// clients (the operator UI, the re-render hook). One hub per Server;
// fed by a single events.Bus.Subscribe call in New.
type hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan events.Event
	done       chan struct{}
}

// client is one connected SSE reader. events is buffered so a slow
// reader doesn't stall the broadcast loop; a full buffer drops events
// for that client only.
type client struct {
	id     string
	events chan events.Event
}

func newHub() *hub {
	return &hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan events.Event, 64),
		done:       make(chan struct{}),
	}
}

// run processes register/unregister/broadcast until stop is closed.
// Run in its own goroutine.
func (h *hub) run() {
	clients := make(map[*client]struct{})
	for {
		select {
		case <-h.done:
			for c := range clients {
				close(c.events)
			}
			return
		case c := <-h.register:
			clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.events)
			}
		case e := <-h.broadcast:
			for c := range clients {
				select {
				case c.events <- e:
				default:
				}
			}
		}
	}
}

func (h *hub) stop() {
	close(h.done)
}

// onEvent is the events.Bus handler the hub subscribes with.
func (h *hub) onEvent(e events.Event) {
	select {
	case h.broadcast <- e:
	default:
	}
}
