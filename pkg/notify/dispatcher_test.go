package notify

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureGateway struct {
	mu       sync.Mutex
	messages []Message
	block    chan struct{}
}

func (g *captureGateway) Send(msg Message) error {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, msg)
	return nil
}

func (g *captureGateway) sent() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Message(nil), g.messages...)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestDispatcher(t *testing.T) {
	t.Run("Close drains queued messages", func(t *testing.T) {
		gateway := &captureGateway{}
		d := NewDispatcher(gateway, testLogger(), 8)

		d.Enqueue("+94771234567", "You're next!")
		d.Enqueue("+94770000000", "3 people ahead of you")
		d.Close()

		sent := gateway.sent()
		require.Len(t, sent, 2)
		assert.Equal(t, "+94771234567", sent[0].Recipient)
		assert.Equal(t, "You're next!", sent[0].Body)
	})

	t.Run("Empty recipient or body is skipped", func(t *testing.T) {
		gateway := &captureGateway{}
		d := NewDispatcher(gateway, testLogger(), 8)

		d.Enqueue("", "hello")
		d.Enqueue("+94771234567", "")
		d.Close()

		assert.Empty(t, gateway.sent())
	})

	t.Run("Full buffer drops without blocking", func(t *testing.T) {
		gateway := &captureGateway{block: make(chan struct{})}
		d := NewDispatcher(gateway, testLogger(), 1)

		// The worker is parked inside Send, so only one message fits the
		// buffer. The rest must be dropped immediately.
		d.Enqueue("+94771111111", "first")
		d.Enqueue("+94772222222", "second")
		d.Enqueue("+94773333333", "third")

		close(gateway.block)
		d.Close()

		assert.LessOrEqual(t, len(gateway.sent()), 2)
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		d := NewDispatcher(&captureGateway{}, testLogger(), 8)
		d.Close()
		d.Close()
	})
}
