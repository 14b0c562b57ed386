package auth

import (
	"sync"

	"github.com/simp-lee/gamelib/internal/domain"
)

// Session holds the signed-in user of one browser or API session and
// notifies subscribers when the user changes.
type Session struct {
	mu     sync.Mutex
	user   *domain.User
	nextID int
	subs   map[int]func(*domain.User)
}

// NewSession creates an anonymous Session.
func NewSession() *Session {
	return &Session{subs: make(map[int]func(*domain.User))}
}

// Current returns the signed-in user, or nil.
func (s *Session) Current() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// OnChange registers fn to be called with the new user after every change.
// The returned function removes the subscription.
func (s *Session) OnChange(fn func(*domain.User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

// Set replaces the signed-in user. Subscribers run outside the lock and only
// when the user id actually changes.
func (s *Session) Set(u *domain.User) {
	s.mu.Lock()
	if s.user.UID() == u.UID() {
		s.user = u
		s.mu.Unlock()
		return
	}
	s.user = u
	fns := make([]func(*domain.User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
