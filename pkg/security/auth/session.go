package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session represents a logged-in client
type Session struct {
	ID           string    `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Token        string    `json:"-"`
	DeviceInfo   string    `json:"device_info"`
	IPAddress    string    `json:"ip_address"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsValid      bool      `json:"is_valid"`
}

// SessionStore manages active sessions keyed by token
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

var (
	sessionStore     *SessionStore
	sessionStoreOnce sync.Once
)

// GetSessionStore returns the singleton instance of SessionStore
func GetSessionStore() *SessionStore {
	sessionStoreOnce.Do(func() {
		sessionStore = NewSessionStore()
	})
	return sessionStore
}

// NewSessionStore returns an empty store. Tests use their own instance.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// CreateSession registers a session for a freshly issued token
func (ss *SessionStore) CreateSession(userID uuid.UUID, deviceInfo, ipAddress, token string, expiresAt time.Time) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session := &Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Token:        token,
		DeviceInfo:   deviceInfo,
		IPAddress:    ipAddress,
		LastActivity: time.Now(),
		ExpiresAt:    expiresAt,
		IsValid:      true,
	}

	ss.sessions[token] = session
	return session
}

// GetSession retrieves a live session by token
func (ss *SessionStore) GetSession(token string) (*Session, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	session, exists := ss.sessions[token]
	if !exists || !session.IsValid || time.Now().After(session.ExpiresAt) {
		return nil, false
	}
	return session, true
}

// InvalidateSession drops the session bound to a token
func (ss *SessionStore) InvalidateSession(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, exists := ss.sessions[token]; exists {
		session.IsValid = false
	}
	delete(ss.sessions, token)
}

// InvalidateUserSessions drops every session of a user and returns their tokens
func (ss *SessionStore) InvalidateUserSessions(userID uuid.UUID) []*Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var dropped []*Session
	for token, session := range ss.sessions {
		if session.UserID == userID {
			session.IsValid = false
			dropped = append(dropped, session)
			delete(ss.sessions, token)
		}
	}
	return dropped
}

// GetUserSessions returns all active sessions for a user
func (ss *SessionStore) GetUserSessions(userID uuid.UUID) []*Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var userSessions []*Session
	now := time.Now()
	for _, session := range ss.sessions {
		if session.UserID == userID && session.IsValid && now.Before(session.ExpiresAt) {
			userSessions = append(userSessions, session)
		}
	}
	return userSessions
}

// CleanupExpiredSessions removes expired sessions and returns how many were dropped
func (ss *SessionStore) CleanupExpiredSessions() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, session := range ss.sessions {
		if !session.IsValid || now.After(session.ExpiresAt) {
			delete(ss.sessions, token)
			removed++
		}
	}
	return removed
}

// UpdateSessionActivity updates the last activity time of a session
func (ss *SessionStore) UpdateSessionActivity(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, exists := ss.sessions[token]; exists {
		session.LastActivity = time.Now()
	}
}
