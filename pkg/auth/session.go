package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the notice session cookie.
const SessionName = "console-notices"

// NoticeStore keeps user-visible notices (failed mutations, rejected input)
// in a signed cookie until the browser collects them.
type NoticeStore struct {
	store *sessions.CookieStore
}

// NewNoticeStore creates the cookie-backed notice store.
//
// The secret parameter is used to sign session cookies. It can be any
// passphrase - it will be SHA-256 hashed to derive a 32-byte key.
// Notices live for one hour; secure controls the cookie's Secure flag.
func NewNoticeStore(secret string, secure bool) *NoticeStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &NoticeStore{store: store}
}

// Add appends a notice to the caller's session.
func (n *NoticeStore) Add(w http.ResponseWriter, r *http.Request, message string) error {
	session, err := n.store.Get(r, SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	session.AddFlash(message)
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Pop returns and clears the caller's pending notices.
func (n *NoticeStore) Pop(w http.ResponseWriter, r *http.Request) ([]string, error) {
	session, err := n.store.Get(r, SessionName)
	if err != nil && session == nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	flashes := session.Flashes()
	notices := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if s, ok := f.(string); ok {
			notices = append(notices, s)
		}
	}
	if len(flashes) > 0 {
		if err := session.Save(r, w); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}
	return notices, nil
}
