package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MessageKind string

const (
	KindBroadcast MessageKind = "BROADCAST"
	KindPrivate   MessageKind = "PRIVATE"
)

// Message is the tagged variant shared by the delivery and persistence
// paths. A broadcast carries the set of logins that have not read it yet;
// a private message carries a single receiver and a read flag.
// Sender is a snapshot of the login at send time, not a live reference:
// the account may be removed while the message is still pending.
type Message struct {
	ID       uuid.UUID
	Kind     MessageKind
	Sender   string
	Receiver string   // private only
	UnreadBy []string // broadcast only, shrinks as recipients read
	Read     bool     // private only
	Text     string
	At       time.Time
}

func NewBroadcast(sender, text string, recipients []string) Message {
	return Message{
		ID:       uuid.New(),
		Kind:     KindBroadcast,
		Sender:   sender,
		UnreadBy: lo.Uniq(recipients),
		Text:     text,
		At:       time.Now().UTC(),
	}
}

func NewPrivate(sender, receiver, text string) Message {
	return Message{
		ID:       uuid.New(),
		Kind:     KindPrivate,
		Sender:   sender,
		Receiver: receiver,
		Text:     text,
		At:       time.Now().UTC(),
	}
}

// PendingFor reports whether the message still awaits delivery to login.
func (m Message) PendingFor(login string) bool {
	switch m.Kind {
	case KindBroadcast:
		return lo.Contains(m.UnreadBy, login)
	case KindPrivate:
		return m.Receiver == login && !m.Read
	}
	return false
}

// MarkReadBy records delivery to login and returns the updated message.
// Marking is idempotent; an unrelated login leaves the message untouched.
func (m Message) MarkReadBy(login string) Message {
	switch m.Kind {
	case KindBroadcast:
		m.UnreadBy = lo.Without(m.UnreadBy, login)
	case KindPrivate:
		if m.Receiver == login {
			m.Read = true
		}
	}
	return m
}

// IsRead reports whether every intended recipient has seen the message.
// Once true it stays true: the unread set only ever shrinks.
func (m Message) IsRead() bool {
	if m.Kind == KindBroadcast {
		return len(m.UnreadBy) == 0
	}
	return m.Read
}
