package notify

import "github.com/sirupsen/logrus"

// ConsoleGateway logs messages instead of sending them. Used in dev mode.
type ConsoleGateway struct {
	logger *logrus.Logger
}

// NewConsoleGateway creates a gateway that writes messages to the log
func NewConsoleGateway(logger *logrus.Logger) *ConsoleGateway {
	return &ConsoleGateway{logger: logger}
}

// Send logs the message at info level
func (g *ConsoleGateway) Send(msg Message) error {
	g.logger.WithFields(logrus.Fields{
		"recipient": msg.Recipient,
		"body":      msg.Body,
	}).Info("Notification (dev mode)")
	return nil
}
