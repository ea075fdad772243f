package tickets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-saas/helios/internal/shared"
)

type mockRepo struct {
	tickets  map[int64]Ticket
	messages map[int64][]Message
	nextID   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{tickets: map[int64]Ticket{}, messages: map[int64][]Message{}, nextID: 1}
}

func (m *mockRepo) List(_ context.Context, filters ListFilters) ([]Ticket, int, error) {
	var out []Ticket
	for _, t := range m.tickets {
		if filters.CompanyID > 0 && t.CompanyID != filters.CompanyID {
			continue
		}
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return Ticket{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *mockRepo) Create(_ context.Context, t Ticket, body string) (Ticket, error) {
	t.ID = m.nextID
	m.nextID++
	m.tickets[t.ID] = t
	m.messages[t.ID] = []Message{{ID: m.nextID, TicketID: t.ID, AuthorID: t.OpenedBy, Body: body}}
	m.nextID++
	return t, nil
}

func (m *mockRepo) AddMessage(_ context.Context, ticketID, authorID int64, body string) (Message, error) {
	if _, ok := m.tickets[ticketID]; !ok {
		return Message{}, shared.ErrNotFound
	}
	msg := Message{ID: m.nextID, TicketID: ticketID, AuthorID: authorID, Body: body}
	m.nextID++
	m.messages[ticketID] = append(m.messages[ticketID], msg)
	return msg, nil
}

func (m *mockRepo) Messages(_ context.Context, ticketID int64) ([]Message, error) {
	return m.messages[ticketID], nil
}

func (m *mockRepo) Assign(_ context.Context, id int64, assigneeID *int64) (Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return Ticket{}, shared.ErrNotFound
	}
	t.AssignedTo = assigneeID
	m.tickets[id] = t
	return t, nil
}

func (m *mockRepo) SetStatus(_ context.Context, id int64, status string) (Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return Ticket{}, shared.ErrNotFound
	}
	t.Status = status
	m.tickets[id] = t
	return t, nil
}

type captureNotifier struct {
	replied []Message
	err     error
}

func (n *captureNotifier) TicketReplied(_ context.Context, _ Ticket, m Message) error {
	n.replied = append(n.replied, m)
	return n.err
}

func TestOpenCreatesTicketWithThread(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	ticket, err := svc.Open(context.Background(), 1, 42, nil, "  Billing question  ", "We were charged twice.", "")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, ticket.Status)
	assert.Equal(t, PriorityNormal, ticket.Priority)
	assert.Equal(t, "Billing question", ticket.Subject)

	_, messages, err := svc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, int64(42), messages[0].AuthorID)
}

func TestOpenValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	_, err := svc.Open(context.Background(), 0, 42, nil, "s", "b", "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Open(context.Background(), 1, 42, nil, "", "b", "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Open(context.Background(), 1, 42, nil, "s", "b", "urgent")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestReplyNotifiesWatchers(t *testing.T) {
	repo := newMockRepo()
	notifier := &captureNotifier{}
	svc := NewService(repo, notifier, nil)

	ticket, err := svc.Open(context.Background(), 1, 42, nil, "subject", "body", "")
	require.NoError(t, err)

	msg, err := svc.Reply(context.Background(), ticket.ID, 7, "Looking into it.")
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.AuthorID)
	require.Len(t, notifier.replied, 1)
	assert.Equal(t, msg.ID, notifier.replied[0].ID)
}

func TestReplyNotifierFailureDoesNotFailReply(t *testing.T) {
	repo := newMockRepo()
	notifier := &captureNotifier{err: assert.AnError}
	svc := NewService(repo, notifier, nil)

	ticket, err := svc.Open(context.Background(), 1, 42, nil, "subject", "body", "")
	require.NoError(t, err)

	_, err = svc.Reply(context.Background(), ticket.ID, 7, "still fine")
	require.NoError(t, err)

	_, messages, err := svc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestReplyRejectsClosedTicket(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	ticket, err := svc.Open(context.Background(), 1, 42, nil, "subject", "body", "")
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), ticket.ID)
	require.NoError(t, err)

	_, err = svc.Reply(context.Background(), ticket.ID, 7, "too late")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignMovesOpenTicketToPending(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	ticket, err := svc.Open(context.Background(), 1, 42, nil, "subject", "body", PriorityHigh)
	require.NoError(t, err)

	assignee := int64(7)
	assigned, err := svc.Assign(context.Background(), ticket.ID, &assignee)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, assignee, *assigned.AssignedTo)
	assert.Equal(t, StatusPending, assigned.Status)

	unassigned, err := svc.Assign(context.Background(), ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedTo)
}

func TestCloseIsIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	ticket, err := svc.Open(context.Background(), 1, 42, nil, "subject", "body", "")
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)

	again, err := svc.Close(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, again.Status)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	_, _, err := svc.List(context.Background(), ListFilters{Status: "archived"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
