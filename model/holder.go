package model

import "sync"

// Holder keeps the network shared by every session of the process. Swapping
// replaces the pointer; a network handed out earlier stays valid.
type Holder struct {
	mu      sync.RWMutex
	current *Network
}

func NewHolder(n *Network) *Holder {
	return &Holder{current: n}
}

// Current returns the active network, or nil if none was loaded.
func (h *Holder) Current() *Network {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Swap installs n and returns the network it replaced.
func (h *Holder) Swap(n *Network) *Network {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = n
	return prev
}
