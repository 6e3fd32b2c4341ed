package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// NotificationPolicy decides which customer messages are due after a queue
// mutation. Each trigger fires at most once per entry, tracked by the
// notified_* flags, so re-running the policy is idempotent.
type NotificationPolicy struct {
	entryRepo  *database.EntryRepository
	dispatcher *notify.Dispatcher
	logger     *logrus.Logger
}

// NewNotificationPolicy creates a new NotificationPolicy
func NewNotificationPolicy(entryRepo *database.EntryRepository, dispatcher *notify.Dispatcher, logger *logrus.Logger) *NotificationPolicy {
	return &NotificationPolicy{entryRepo: entryRepo, dispatcher: dispatcher, logger: logger}
}

// trigger is one message due for one waiting entry
type trigger struct {
	entry *models.QueueEntry
	kind  database.NotificationKind
	body  string
}

// dueTriggers walks the waiting list in position order and collects the
// position-based messages not yet sent: next-up for the head of the line,
// almost-up for everyone within the top three.
func dueTriggers(waiting []models.QueueEntry) []trigger {
	var due []trigger
	for i := range waiting {
		e := &waiting[i]
		ahead := i
		switch {
		case ahead == 0 && !e.NotifiedNext:
			due = append(due, trigger{
				entry: e,
				kind:  database.NotifiedNext,
				body:  fmt.Sprintf("You're next! Ticket %s, please be ready.", e.TicketNumber),
			})
		case ahead > 0 && ahead < 3 && !e.NotifiedTop3:
			due = append(due, trigger{
				entry: e,
				kind:  database.NotifiedTop3,
				body:  fmt.Sprintf("Almost your turn! Only %d guests ahead of ticket %s.", ahead, e.TicketNumber),
			})
		}
	}
	return due
}

// Refresh evaluates position-based triggers for a queue's waiting list and
// dispatches whatever is due. Send failures are logged by the dispatcher and
// never surface here.
func (p *NotificationPolicy) Refresh(queueID uuid.UUID, day string) {
	waiting, err := p.entryRepo.ListForDay(queueID, day, models.EntryStatusWaiting)
	if err != nil {
		p.logger.WithError(err).Error("Failed to load waiting list for notifications")
		return
	}

	for _, t := range dueTriggers(waiting) {
		recipient := t.entry.Recipient()
		if recipient == "" {
			continue
		}
		if err := p.entryRepo.MarkNotified(t.entry.ID, t.kind); err != nil {
			p.logger.WithError(err).Warn("Failed to mark notification flag")
			continue
		}
		p.dispatcher.Enqueue(recipient, t.body)
	}
}

// NotifyJoined sends the join confirmation with ticket and wait estimate.
func (p *NotificationPolicy) NotifyJoined(entry *models.QueueEntry, waitMinutes int) {
	if entry.NotifiedJoin {
		return
	}
	recipient := entry.Recipient()
	if recipient == "" {
		return
	}
	if err := p.entryRepo.MarkNotified(entry.ID, database.NotifiedJoin); err != nil {
		p.logger.WithError(err).Warn("Failed to mark join notification flag")
		return
	}
	body := fmt.Sprintf("You're in the queue! Ticket %s, position %d. Estimated wait: %d minutes.",
		entry.TicketNumber, entry.Position, waitMinutes)
	p.dispatcher.Enqueue(recipient, body)
}

// NotifyNoShow tells the guest their entry was marked as a no-show.
func (p *NotificationPolicy) NotifyNoShow(entry *models.QueueEntry) {
	if entry.NotifiedNoShow {
		return
	}
	recipient := entry.Recipient()
	if recipient == "" {
		return
	}
	if err := p.entryRepo.MarkNotified(entry.ID, database.NotifiedNoShow); err != nil {
		p.logger.WithError(err).Warn("Failed to mark no-show notification flag")
		return
	}
	body := fmt.Sprintf("We missed you! Ticket %s was marked as a no-show. Please rejoin the queue if you're still coming.", entry.TicketNumber)
	p.dispatcher.Enqueue(recipient, body)
}

// NotifyServing tells the guest their service has started.
func (p *NotificationPolicy) NotifyServing(entry *models.QueueEntry) {
	recipient := entry.Recipient()
	if recipient == "" {
		return
	}
	p.dispatcher.Enqueue(recipient, fmt.Sprintf("It's your turn! Ticket %s is now being served.", entry.TicketNumber))
}
