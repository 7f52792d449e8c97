package channel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"avaneesh/osc-relay/pkg/osc"
)

// ErrNoHandler is returned when no route matches a message's address
var ErrNoHandler = errors.New("no handler for address")

// Handler consumes one decoded message and returns the messages to send
type Handler interface {
	Handle(msg *osc.Message) ([]*osc.Message, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(msg *osc.Message) ([]*osc.Message, error)

// Handle calls f(msg)
func (f HandlerFunc) Handle(msg *osc.Message) ([]*osc.Message, error) {
	return f(msg)
}

type prefixRoute struct {
	prefix  string
	handler Handler
}

// Dispatcher routes messages to handlers by address.
// Exact routes win over prefix routes; among prefixes the longest wins.
// Matching is case-sensitive.
type Dispatcher struct {
	exact    map[string]Handler
	prefixes []prefixRoute
	mu       sync.RWMutex
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		exact: make(map[string]Handler),
	}
}

// Map routes messages whose address equals address
func (d *Dispatcher) Map(address string, handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.exact[address]; exists {
		return fmt.Errorf("handler for address %s already exists", address)
	}
	d.exact[address] = handler
	return nil
}

// MapPrefix routes messages whose address starts with prefix
func (d *Dispatcher) MapPrefix(prefix string, handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.prefixes {
		if r.prefix == prefix {
			return fmt.Errorf("handler for prefix %s already exists", prefix)
		}
	}
	d.prefixes = append(d.prefixes, prefixRoute{prefix: prefix, handler: handler})
	sort.SliceStable(d.prefixes, func(i, j int) bool {
		return len(d.prefixes[i].prefix) > len(d.prefixes[j].prefix)
	})
	return nil
}

// Dispatch delivers msg to the matching handler.
// Returns ErrNoHandler when the message is not for us.
func (d *Dispatcher) Dispatch(msg *osc.Message) ([]*osc.Message, error) {
	d.mu.RLock()
	handler, ok := d.exact[msg.Address]
	if !ok {
		for _, r := range d.prefixes {
			if strings.HasPrefix(msg.Address, r.prefix) {
				handler, ok = r.handler, true
				break
			}
		}
	}
	d.mu.RUnlock()

	if !ok {
		return nil, ErrNoHandler
	}
	return handler.Handle(msg)
}

// Routes returns the number of registered routes
func (d *Dispatcher) Routes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.exact) + len(d.prefixes)
}
