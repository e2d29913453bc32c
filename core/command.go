package core

import (
	"errors"
	"sort"
	"sync"
)

// FrameHandler handles the payload of a received CAN frame
type FrameHandler func(data []byte) error

// FrameCommand represents a registered inbound CAN frame
type FrameCommand struct {
	ID      uint32
	Name    string
	MinLen  int // Shortest payload the handler accepts
	Handler FrameHandler
}

// FrameRegistry holds the handlers for inbound CAN frames, keyed by identifier
type FrameRegistry struct {
	mu       sync.RWMutex
	commands map[uint32]*FrameCommand
	unknown  uint32
	rejected uint32
}

// NewFrameRegistry creates a new frame registry
func NewFrameRegistry() *FrameRegistry {
	return &FrameRegistry{
		commands: make(map[uint32]*FrameCommand),
	}
}

// Register adds a frame handler. Registering an ID twice replaces the handler.
func (r *FrameRegistry) Register(id uint32, name string, minLen int, handler FrameHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands[id] = &FrameCommand{
		ID:      id,
		Name:    name,
		MinLen:  minLen,
		Handler: handler,
	}
}

// Get retrieves a frame command by ID
func (r *FrameRegistry) Get(id uint32) (*FrameCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Count returns the number of registered frames
func (r *FrameRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// IDs returns the registered identifiers in ascending order,
// used to program hardware acceptance filters
func (r *FrameRegistry) IDs() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint32, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Dispatch calls the handler registered for id
func (r *FrameRegistry) Dispatch(id uint32, data []byte) error {
	cmd, ok := r.Get(id)
	if !ok {
		r.mu.Lock()
		r.unknown++
		r.mu.Unlock()
		return errors.New("unknown frame id: " + hex3(id))
	}
	if len(data) < cmd.MinLen {
		r.mu.Lock()
		r.rejected++
		r.mu.Unlock()
		return errors.New(cmd.Name + ": short frame, got " + itoa(len(data)) + " bytes")
	}
	return cmd.Handler(data)
}

// Dropped returns the counts of unknown and rejected frames
func (r *FrameRegistry) Dropped() (unknown, rejected uint32) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unknown, r.rejected
}
