//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_directory.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"chatd/domain"
	"chatd/errors"

	"github.com/dgraph-io/badger/v4"
)

const userKeyPrefix = "user:"

type IUserDirectory interface {
	IsLoginAvailable(login string) (bool, error)
	Create(login, passwordDigest, displayName string) (domain.UserRecord, error)
	Get(login string) (domain.UserRecord, error)
	Remove(login string) error
	SetLoggedIn(login string, loggedIn bool) error
	List() ([]domain.UserRecord, error)
}

// UserDirectory is the authoritative login -> record mapping, persisted in
// BadgerDB. Badger transactions serialize concurrent handlers; no extra
// locking is needed on top.
type UserDirectory struct {
	db *badger.DB
}

func NewUserDirectory(db *badger.DB) IUserDirectory {
	return &UserDirectory{db: db}
}

// diskUser is the persisted shape of a user record.
type diskUser struct {
	Login          string    `json:"login"`
	PasswordDigest string    `json:"password_digest"`
	DisplayName    string    `json:"display_name"`
	LoggedIn       bool      `json:"logged_in"`
	CreatedAt      time.Time `json:"created_at"`
}

func userKey(login string) []byte {
	return []byte(userKeyPrefix + login)
}

func (d *UserDirectory) IsLoginAvailable(login string) (bool, error) {
	available := false
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(login))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			available = true
			return nil
		}
		return err
	})
	return available, err
}

// Create persists a new record marked not-logged-in.
// Existence is checked inside the same transaction as the write, so two
// racing sign-ups for one login cannot both succeed.
func (d *UserDirectory) Create(login, passwordDigest, displayName string) (domain.UserRecord, error) {
	record := diskUser{
		Login:          login,
		PasswordDigest: passwordDigest,
		DisplayName:    displayName,
		LoggedIn:       false,
		CreatedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = d.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(login)); err == nil {
			return errors.ErrLoginTaken
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(userKey(login), data)
	})
	if err != nil {
		return domain.UserRecord{}, err
	}
	return toUserRecord(record), nil
}

func (d *UserDirectory) Get(login string) (domain.UserRecord, error) {
	var record diskUser
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(login))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.UserRecord{}, errors.ErrUnknownLogin
	}
	if err != nil {
		return domain.UserRecord{}, err
	}
	return toUserRecord(record), nil
}

// Remove deletes the record and its persisted form.
// Session preconditions are the caller's responsibility (the account must
// not be active anywhere); the directory only owns the records.
func (d *UserDirectory) Remove(login string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(login)); err != nil {
			return err
		}
		return txn.Delete(userKey(login))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUnknownLogin
	}
	return err
}

// SetLoggedIn mutates only the logged-in flag. Idempotent; reconciliation
// calls it to repair drift after a handler dies without cleanup.
func (d *UserDirectory) SetLoggedIn(login string, loggedIn bool) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(login))
		if err != nil {
			return err
		}
		var record diskUser
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			return err
		}
		if record.LoggedIn == loggedIn {
			return nil
		}
		record.LoggedIn = loggedIn
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(userKey(login), data)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUnknownLogin
	}
	return err
}

func (d *UserDirectory) List() ([]domain.UserRecord, error) {
	var records []domain.UserRecord
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record diskUser
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, toUserRecord(record))
		}
		return nil
	})
	return records, err
}

func toUserRecord(record diskUser) domain.UserRecord {
	return domain.UserRecord{
		Login:          record.Login,
		PasswordDigest: record.PasswordDigest,
		DisplayName:    record.DisplayName,
		LoggedIn:       record.LoggedIn,
		CreatedAt:      record.CreatedAt,
	}
}
