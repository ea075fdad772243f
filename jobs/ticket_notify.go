package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/helios-saas/helios/internal/tickets"
)

const (
	// TaskTicketNotify fans out a ticket reply to its watchers.
	TaskTicketNotify = "tickets:notify"
)

// TicketNotifyPayload identifies the reply being announced.
type TicketNotifyPayload struct {
	TicketID  int64  `json:"ticket_id"`
	MessageID int64  `json:"message_id"`
	Subject   string `json:"subject"`
	AuthorID  int64  `json:"author_id"`
}

// NewTicketNotifyTask constructs an Asynq task for a ticket reply.
func NewTicketNotifyTask(payload TicketNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTicketNotify, body, asynq.Queue(QueueDefault)), nil
}

// HandleTicketNotifyTask processes TaskTicketNotify tasks.
func HandleTicketNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload TicketNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: resolve watcher addresses and hand off to mail:send.
	fmt.Printf("[jobs] ticket %d reply %d by user %d\n", payload.TicketID, payload.MessageID, payload.AuthorID)
	return nil
}

// TicketNotifier enqueues notification jobs for ticket activity. It
// satisfies the ticket service's notifier port.
type TicketNotifier struct {
	client *Client
	logger *slog.Logger
}

// NewTicketNotifier constructs a TicketNotifier.
func NewTicketNotifier(client *Client, logger *slog.Logger) *TicketNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketNotifier{client: client, logger: logger}
}

// TicketReplied enqueues a notify task for the reply.
func (n *TicketNotifier) TicketReplied(ctx context.Context, t tickets.Ticket, m tickets.Message) error {
	task, err := NewTicketNotifyTask(TicketNotifyPayload{
		TicketID:  t.ID,
		MessageID: m.ID,
		Subject:   t.Subject,
		AuthorID:  m.AuthorID,
	})
	if err != nil {
		return err
	}
	if _, err := n.client.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		return err
	}
	return nil
}

var _ tickets.Notifier = (*TicketNotifier)(nil)
