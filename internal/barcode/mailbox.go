// Package barcode holds the scanner listener and the single-slot mailbox that
// hands a scanned code to the next detection record.
package barcode

import "sync"

// Mailbox is a single-slot, most-recent-wins holder for a scanned barcode. A
// second scan before the first is consumed silently overwrites it. Take
// consumes and clears the slot so one scan is attached to at most one record.
type Mailbox struct {
	mu    sync.Mutex
	value string
	set   bool
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Set stores a scanned value, replacing any previous one.
func (m *Mailbox) Set(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.set = true
}

// Take returns the pending value and clears the slot.
func (m *Mailbox) Take() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", false
	}
	value := m.value
	m.value = ""
	m.set = false
	return value, true
}

// Peek returns the pending value without clearing it.
func (m *Mailbox) Peek() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.set
}

// Clear empties the slot.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	m.set = false
}
