// Package session holds the application-scoped state of the signed-in user.
// It is created once at startup and handed to whoever needs it.
package session

import "sync"

// Principal is the user acting on requests.
type Principal struct {
	ID   int64  `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Role string `yaml:"role" json:"role"`
}

// State is the session port. Tests substitute a fresh Memory per test.
type State interface {
	Principal() (Principal, bool)
	SignIn(p Principal)
	SignOut()
}

// Memory is a State kept in process memory.
type Memory struct {
	mu sync.RWMutex
	p  *Principal
}

func NewMemory() *Memory { return &Memory{} }

// NewSignedIn returns a Memory already holding p.
func NewSignedIn(p Principal) *Memory {
	m := &Memory{}
	m.SignIn(p)
	return m
}

func (m *Memory) Principal() (Principal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.p == nil {
		return Principal{}, false
	}
	return *m.p, true
}

func (m *Memory) SignIn(p Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = &p
}

func (m *Memory) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = nil
}

// Actor names the principal of s for journals and logs, or "" when nobody
// is signed in.
func Actor(s State) string {
	if s == nil {
		return ""
	}
	p, ok := s.Principal()
	if !ok {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return "user"
}
