package repositories

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"chatd/domain"
	"chatd/errors"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestMailbox(t *testing.T) (IMailboxStore, IUserDirectory) {
	t.Helper()
	db := newTestDB(t)
	directory := NewUserDirectory(db)

	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return NewMailboxStore(db, index, directory, slog.Default()), directory
}

func mustCreate(t *testing.T, directory IUserDirectory, logins ...string) {
	t.Helper()
	for _, login := range logins {
		_, err := directory.Create(login, "digest", login)
		require.NoError(t, err)
	}
}

func TestMailbox_BroadcastDeliveredOncePerRecipient(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice", "bob", "clara")

	_, err := mailbox.EnqueueBroadcast("alice", "hello all", []string{"bob", "clara"})
	req.NoError(err)

	messages, err := mailbox.Drain("bob")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("hello all", messages[0].Text)
	req.Equal("alice", messages[0].Sender)

	// Draining again yields nothing new.
	messages, err = mailbox.Drain("bob")
	req.NoError(err)
	req.Empty(messages)

	// The sender was never a recipient.
	messages, err = mailbox.Drain("alice")
	req.NoError(err)
	req.Empty(messages)

	// The last recipient still gets it; afterwards the record is gone.
	messages, err = mailbox.Drain("clara")
	req.NoError(err)
	req.Len(messages, 1)
	messages, err = mailbox.Drain("clara")
	req.NoError(err)
	req.Empty(messages)
}

func TestMailbox_PrivateSurvivesOfflineReceiver(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice", "bob")

	_, err := mailbox.EnqueuePrivate("alice", "bob", "secret")
	req.NoError(err)

	// Nothing for bystanders, nothing for the sender.
	messages, err := mailbox.Drain("alice")
	req.NoError(err)
	req.Empty(messages)

	// Bob "comes online" later and receives it exactly once.
	messages, err = mailbox.Drain("bob")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("secret", messages[0].Text)
	req.Equal("bob", messages[0].Receiver)

	messages, err = mailbox.Drain("bob")
	req.NoError(err)
	req.Empty(messages)
}

func TestMailbox_PrivateUnknownReceiver(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice")

	_, err := mailbox.EnqueuePrivate("alice", "ghost", "anyone there?")
	req.ErrorIs(err, errors.ErrUnknownReceiver)
}

func TestMailbox_EmptyTextRejected(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice", "bob")

	_, err := mailbox.EnqueueBroadcast("alice", "", []string{"bob"})
	req.ErrorIs(err, errors.ErrEmptyMessage)
	_, err = mailbox.EnqueuePrivate("alice", "bob", "")
	req.ErrorIs(err, errors.ErrEmptyMessage)
}

func TestMessage_RoundTrip(t *testing.T) {
	req := require.New(t)

	broadcast := domain.NewBroadcast("alice", "hello all", []string{"bob", "clara"})
	data, err := encodeMessage(broadcast)
	req.NoError(err)
	decoded, err := decodeMessage(data)
	req.NoError(err)
	req.Equal(broadcast, decoded)

	private := domain.NewPrivate("alice", "bob", "secret")
	private = private.MarkReadBy("bob")
	data, err = encodeMessage(private)
	req.NoError(err)
	decoded, err = decodeMessage(data)
	req.NoError(err)
	req.Equal(private, decoded)
}

func TestMailbox_ConcurrentEnqueueAndDrainLosesNothing(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice", "bob")

	const total = 50
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			_, err := mailbox.EnqueuePrivate("alice", "bob", "ping")
			require.NoError(t, err)
		}
	}()

	received := 0
	for received < total {
		messages, err := mailbox.Drain("bob")
		req.NoError(err)
		received += len(messages)
	}
	wg.Wait()

	// Every message arrived exactly once.
	req.Equal(total, received)
	messages, err := mailbox.Drain("bob")
	req.NoError(err)
	req.Empty(messages)
}

func TestMailbox_BroadcastWithoutRecipientsNeverPersists(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	directory := NewUserDirectory(db)
	mailbox := NewMailboxStore(db, nil, directory, slog.Default())
	mustCreate(t, directory, "alice")

	_, err := mailbox.EnqueueBroadcast("alice", "talking to myself", nil)
	req.NoError(err)

	// Nothing landed on disk; there is nobody who could ever drain it.
	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(messageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	req.NoError(err)
	req.Zero(count)
}

func TestMailbox_SweepDropsRemovedRecipients(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice", "bob", "clara")

	_, err := mailbox.EnqueueBroadcast("alice", "hello all", []string{"bob", "clara"})
	req.NoError(err)
	_, err = mailbox.EnqueueBroadcast("alice", "just for clara", []string{"clara"})
	req.NoError(err)
	_, err = mailbox.EnqueuePrivate("alice", "bob", "stays put")
	req.NoError(err)

	req.NoError(directory.Remove("clara"))

	deleted, err := mailbox.Sweep()
	req.NoError(err)
	req.Equal(1, deleted, "only clara's sole broadcast is undrainable")

	// bob still gets the shared broadcast and his private message.
	messages, err := mailbox.Drain("bob")
	req.NoError(err)
	req.Len(messages, 2)

	// A second sweep finds nothing left to do.
	deleted, err = mailbox.Sweep()
	req.NoError(err)
	req.Zero(deleted)
}

func TestMailbox_Search(t *testing.T) {
	req := require.New(t)
	mailbox, directory := newTestMailbox(t)
	mustCreate(t, directory, "alice", "bob")

	_, err := mailbox.EnqueueBroadcast("alice", "the quick brown fox", []string{"bob"})
	req.NoError(err)
	_, err = mailbox.EnqueuePrivate("alice", "bob", "lazy dog sleeping")
	req.NoError(err)

	hits, err := mailbox.Search(context.Background(), "fox", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("alice", hits[0].Sender)
	req.Equal("the quick brown fox", hits[0].Text)

	hits, err = mailbox.Search(context.Background(), "absent", 10)
	req.NoError(err)
	req.Empty(hits)
}
