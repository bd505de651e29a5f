//go:generate go run go.uber.org/mock/mockgen -source=mailbox.go -destination=../mocks/mock_mailbox_store.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chatd/domain"
	"chatd/errors"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const messageKeyPrefix = "msg:"

type SearchHit struct {
	Sender string
	Kind   string
	Text   string
}

type IMailboxStore interface {
	EnqueueBroadcast(sender, text string, recipients []string) (domain.Message, error)
	EnqueuePrivate(sender, receiver, text string) (domain.Message, error)
	Drain(login string) ([]domain.Message, error)
	Sweep() (int, error)
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// MailboxStore keeps every pending message in BadgerDB, keyed so a prefix
// scan yields them in arrival order, and mirrors the text into a bluge
// index for history search. Mutations take the store mutex: a drain must
// observe each broadcast's unread set atomically with respect to other
// drains shrinking the same set. The mutex is never held across anything
// but local storage calls.
type MailboxStore struct {
	mu        sync.Mutex
	db        *badger.DB
	index     *bluge.Writer
	directory IUserDirectory
	log       *slog.Logger
}

func NewMailboxStore(db *badger.DB, index *bluge.Writer, directory IUserDirectory, log *slog.Logger) IMailboxStore {
	return &MailboxStore{db: db, index: index, directory: directory, log: log}
}

// diskMessage is the persisted tagged record. Receiver/read are only
// meaningful for PRIVATE, unread_by only for BROADCAST.
type diskMessage struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver,omitempty"`
	UnreadBy []string  `json:"unread_by,omitempty"`
	Read     bool      `json:"read,omitempty"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// messageKey orders messages chronologically: 19-digit zero padding keeps
// the lexicographic and numeric orders identical, the UUID suffix breaks
// same-nanosecond collisions.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messageKeyPrefix, m.At.UnixNano(), m.ID))
}

func encodeMessage(m domain.Message) ([]byte, error) {
	return json.Marshal(diskMessage{
		ID:       m.ID.String(),
		Kind:     string(m.Kind),
		Sender:   m.Sender,
		Receiver: m.Receiver,
		UnreadBy: m.UnreadBy,
		Read:     m.Read,
		Text:     m.Text,
		At:       m.At,
	})
}

func decodeMessage(data []byte) (domain.Message, error) {
	var record diskMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.Message{}, err
	}
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:       id,
		Kind:     domain.MessageKind(record.Kind),
		Sender:   record.Sender,
		Receiver: record.Receiver,
		UnreadBy: record.UnreadBy,
		Read:     record.Read,
		Text:     record.Text,
		At:       record.At,
	}, nil
}

// EnqueueBroadcast stores one message visible to every listed recipient.
// Callers pass the recipient set with the sender already excluded.
func (m *MailboxStore) EnqueueBroadcast(sender, text string, recipients []string) (domain.Message, error) {
	if text == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	message := domain.NewBroadcast(sender, text, recipients)
	if err := m.store(message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// EnqueuePrivate stores one message for a single receiver, verifying the
// receiver is a known login first.
func (m *MailboxStore) EnqueuePrivate(sender, receiver, text string) (domain.Message, error) {
	if text == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	if _, err := m.directory.Get(receiver); err != nil {
		if stderrors.Is(err, errors.ErrUnknownLogin) {
			return domain.Message{}, errors.ErrUnknownReceiver
		}
		return domain.Message{}, err
	}
	message := domain.NewPrivate(sender, receiver, text)
	if err := m.store(message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func (m *MailboxStore) store(message domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A broadcast with nobody left to read it can never be drained;
	// it goes to the search index only.
	if message.Kind == domain.KindBroadcast && message.IsRead() {
		return m.indexMessage(message)
	}

	data, err := encodeMessage(message)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), data)
	})
	if err != nil {
		return err
	}
	return m.indexMessage(message)
}

// indexMessage mirrors the message into the search index. Indexing is
// best-effort: a failed index write must not lose the message itself.
func (m *MailboxStore) indexMessage(message domain.Message) error {
	if m.index == nil {
		return nil
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("sender", message.Sender).StoreValue()).
		AddField(bluge.NewTextField("text", message.Text).StoreValue()).
		AddField(bluge.NewKeywordField("kind", string(message.Kind)).StoreValue())
	if err := m.index.Update(doc.ID(), doc); err != nil {
		m.log.Warn("Message stored but not indexed", "id", message.ID, "err", err)
	}
	return nil
}

// Drain returns and consumes everything pending for login, in arrival
// order. A broadcast is marked read by removing login from its unread set
// and is deleted once the set empties; a private flips its read flag and
// stays on disk for history. Each call consumes what it returns: draining
// twice yields nothing new. Messages enqueued concurrently land either in
// this drain or the next one, never nowhere.
func (m *MailboxStore) Drain(login string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		pending = pending[:0]

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var message domain.Message
			err := item.Value(func(val []byte) error {
				var err error
				message, err = decodeMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			if !message.PendingFor(login) {
				continue
			}

			key := item.KeyCopy(nil)
			updated := message.MarkReadBy(login)
			if updated.Kind == domain.KindBroadcast && updated.IsRead() {
				if err := txn.Delete(key); err != nil {
					return err
				}
			} else {
				data, err := encodeMessage(updated)
				if err != nil {
					return err
				}
				if err := txn.Set(key, data); err != nil {
					return err
				}
			}
			pending = append(pending, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// Sweep prunes removed logins out of broadcast unread sets and deletes
// broadcasts nobody left can drain. Account removal does not touch the
// mailbox directly; its traces are collected here, from the
// reconciliation worker. Returns the number of deleted records.
func (m *MailboxStore) Sweep() (int, error) {
	records, err := m.directory.List()
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.Login] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	err = m.db.Update(func(txn *badger.Txn) error {
		deleted = 0

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var message domain.Message
			err := item.Value(func(val []byte) error {
				var err error
				message, err = decodeMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			if message.Kind != domain.KindBroadcast {
				continue
			}

			kept := lo.Filter(message.UnreadBy, func(login string, _ int) bool {
				_, ok := known[login]
				return ok
			})
			if len(kept) == len(message.UnreadBy) {
				continue
			}

			key := item.KeyCopy(nil)
			if len(kept) == 0 {
				if err := txn.Delete(key); err != nil {
					return err
				}
				deleted++
				continue
			}
			message.UnreadBy = kept
			data, err := encodeMessage(message)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Search runs a match query over the indexed message text.
func (m *MailboxStore) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if m.index == nil {
		return nil, nil
	}
	reader, err := m.index.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	request := bluge.NewTopNSearch(limit, bluge.NewMatchQuery(query).SetField("text"))
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit SearchHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "sender":
				hit.Sender = string(value)
			case "text":
				hit.Text = string(value)
			case "kind":
				hit.Kind = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
