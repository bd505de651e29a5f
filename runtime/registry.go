package runtime

import (
	"sort"
	"sync"
	"time"

	"chatd/domain"
	"chatd/errors"
	"chatd/repositories"

	"github.com/google/uuid"
)

type activeSession struct {
	session domain.Session
	close   func()
}

// SessionRegistry tracks which logins hold a live connection in this
// process. It is deliberately separate from the directory's persisted
// logged-in flag: a handler can die without running its cleanup path, and
// Reconcile repairs the resulting drift from what is actually held here.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]activeSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]activeSession)}
}

// Acquire is an atomic check-and-set: of two handlers racing to sign in
// the same login, exactly one gets the session. The close callback lets
// an administrative kick cut the winning connection later.
func (r *SessionRegistry) Acquire(login string, connID uuid.UUID, close func()) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.sessions[login]; held {
		return domain.Session{}, errors.ErrAlreadyActive
	}
	session := domain.Session{
		Login:         login,
		ConnectionID:  connID,
		EstablishedAt: time.Now().UTC(),
	}
	r.sessions[login] = activeSession{session: session, close: close}
	return session, nil
}

// Release drops the session owned by connID. Idempotent, and a no-op when
// another connection has since acquired the login (a kicked handler's late
// cleanup must not evict its successor).
func (r *SessionRegistry) Release(login string, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.sessions[login]; ok && held.session.ConnectionID == connID {
		delete(r.sessions, login)
	}
}

func (r *SessionRegistry) IsActive(login string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, held := r.sessions[login]
	return held
}

func (r *SessionRegistry) ListActive() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(r.sessions))
	for _, held := range r.sessions {
		sessions = append(sessions, held.session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Login < sessions[j].Login
	})
	return sessions
}

// Kick closes the login's connection. The session itself is released by
// the handler's cleanup once its read loop observes the closed socket.
func (r *SessionRegistry) Kick(login string) bool {
	r.mu.RLock()
	held, ok := r.sessions[login]
	r.mu.RUnlock()

	if ok && held.close != nil {
		held.close()
	}
	return ok
}

// Reconcile aligns the directory's persisted logged-in flags with the
// sessions actually held. Runs at startup (nothing can be active yet),
// after a handler terminates abnormally, and periodically from a
// supervised worker. Returns the number of corrected records.
func (r *SessionRegistry) Reconcile(directory repositories.IUserDirectory) (int, error) {
	records, err := directory.List()
	if err != nil {
		return 0, err
	}

	corrected := 0
	for _, record := range records {
		active := r.IsActive(record.Login)
		if record.LoggedIn == active {
			continue
		}
		if err := directory.SetLoggedIn(record.Login, active); err != nil {
			return corrected, err
		}
		corrected++
	}
	return corrected, nil
}
