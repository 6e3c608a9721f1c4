package barcode

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxTakeConsumes(t *testing.T) {
	m := NewMailbox()

	_, ok := m.Take()
	assert.False(t, ok, "empty mailbox has nothing to take")

	m.Set("PCB-1")
	value, ok := m.Take()
	require.True(t, ok)
	assert.Equal(t, "PCB-1", value)

	_, ok = m.Take()
	assert.False(t, ok, "a scan is consumed at most once")
}

func TestMailboxMostRecentWins(t *testing.T) {
	m := NewMailbox()

	m.Set("PCB-1")
	m.Set("PCB-2")

	value, ok := m.Take()
	require.True(t, ok)
	assert.Equal(t, "PCB-2", value)
}

func TestMailboxPeekDoesNotClear(t *testing.T) {
	m := NewMailbox()
	m.Set("PCB-3")

	value, ok := m.Peek()
	require.True(t, ok)
	assert.Equal(t, "PCB-3", value)

	value, ok = m.Take()
	require.True(t, ok)
	assert.Equal(t, "PCB-3", value)
}

func TestMailboxClear(t *testing.T) {
	m := NewMailbox()
	m.Set("PCB-4")
	m.Clear()

	_, ok := m.Peek()
	assert.False(t, ok)
}

// waitForScan polls the mailbox until a value appears or the deadline passes.
func waitForScan(t *testing.T, m *Mailbox, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if value, ok := m.Peek(); ok && value == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mailbox never received %q", want)
}

func TestListenerPublishesScans(t *testing.T) {
	m := NewMailbox()
	l := NewListener(m, strings.NewReader("PCB-100\r\n\n  \nPCB-101\n"), nil)

	l.Start(context.Background())
	require.True(t, l.Wait(2*time.Second), "listener stops when the stream ends")

	// Blank lines are skipped, the last scan wins.
	value, ok := m.Peek()
	require.True(t, ok)
	assert.Equal(t, "PCB-101", value)
}

func TestListenerTrimsWhitespace(t *testing.T) {
	m := NewMailbox()
	l := NewListener(m, strings.NewReader("  PCB-200 \r\n"), nil)

	l.Start(context.Background())
	require.True(t, l.Wait(2*time.Second))

	value, ok := m.Peek()
	require.True(t, ok)
	assert.Equal(t, "PCB-200", value)
}

func TestListenerStopsOnCancel(t *testing.T) {
	m := NewMailbox()
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	l := NewListener(m, pr, nil)
	l.closer = pr

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)

	_, err := pw.Write([]byte("PCB-300\n"))
	require.NoError(t, err)
	waitForScan(t, m, "PCB-300")

	cancel()
	assert.True(t, l.Wait(2*time.Second), "cancellation stops the listener even with a blocked read")
}

func TestListenerWaitTimesOut(t *testing.T) {
	m := NewMailbox()
	pr, pw := io.Pipe()
	t.Cleanup(func() {
		_ = pw.Close()
		_ = pr.Close()
	})

	l := NewListener(m, pr, nil)
	l.Start(context.Background())

	assert.False(t, l.Wait(50*time.Millisecond), "a listener with an open stream keeps running")
}
