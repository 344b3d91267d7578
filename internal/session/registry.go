package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownToken = errors.New("session: unknown or expired token")

// Registry holds the live sessions indexed by bearer token. One session
// per annotator: logging in again replaces the previous session and
// invalidates its token, so a second browser tab cannot fork the batch.
type Registry struct {
	mu          sync.Mutex
	byToken     map[string]*Session
	byAnnotator map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byToken:     make(map[string]*Session),
		byAnnotator: make(map[string]string),
	}
}

// Add registers the session and returns its bearer token.
func (r *Registry) Add(s *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byAnnotator[s.AnnotatorID()]; ok {
		delete(r.byToken, old)
	}
	token := uuid.NewString()
	r.byToken[token] = s
	r.byAnnotator[s.AnnotatorID()] = token
	return token
}

func (r *Registry) Get(token string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return s, nil
}

func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[token]; ok {
		delete(r.byAnnotator, s.AnnotatorID())
		delete(r.byToken, token)
	}
}
