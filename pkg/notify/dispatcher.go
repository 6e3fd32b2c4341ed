package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Dispatcher sends messages asynchronously through a Gateway. Enqueue never
// blocks: when the buffer is full the message is dropped and logged, so a
// slow gateway can never stall a queue operation.
type Dispatcher struct {
	gateway Gateway
	logger  *logrus.Logger
	queue   chan Message

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher creates a dispatcher with the given buffer size and starts
// its worker goroutine.
func NewDispatcher(gateway Gateway, logger *logrus.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &Dispatcher{
		gateway: gateway,
		logger:  logger,
		queue:   make(chan Message, queueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue queues a message for delivery. Messages with an empty recipient are
// silently skipped.
func (d *Dispatcher) Enqueue(recipient, body string) {
	if recipient == "" || body == "" {
		return
	}
	select {
	case d.queue <- Message{Recipient: recipient, Body: body}:
	default:
		d.logger.WithField("recipient", recipient).Warn("Notification queue full, dropping message")
	}
}

// Close stops the worker after draining queued messages.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		if err := d.gateway.Send(msg); err != nil {
			d.logger.WithFields(logrus.Fields{
				"recipient": msg.Recipient,
				"error":     err.Error(),
			}).Error("Failed to send notification")
		}
	}
}
