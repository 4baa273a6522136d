// Package session keeps per-visitor widget state. Visitors expire after a
// period of inactivity, which stands in for the page being closed.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"bioneuro/backend/internal/decoder"
	"bioneuro/backend/internal/flow"
	"bioneuro/backend/internal/llm"
)

var ErrBusy = flow.ErrBusy

type Visitor struct {
	ID        string
	CreatedAt time.Time
	Decoder   *decoder.Widget

	mu     sync.Mutex
	chat   *llm.Session
	system string
}

// Chat returns the visitor's chat session, creating it on first use.
func (v *Visitor) Chat() *llm.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.chat == nil {
		v.chat = llm.NewSession(v.ID, v.system)
	}
	return v.chat
}

// ResetChat drops the chat session so the next Chat call starts fresh.
func (v *Visitor) ResetChat() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.chat == nil {
		return nil
	}
	if err := v.chat.Close(); err != nil {
		return err
	}
	v.chat = nil
	return nil
}

type Store struct {
	mu        sync.Mutex
	cache     *gocache.Cache
	newWidget func() *decoder.Widget
	system    string
	onChange  func(count int)
}

// NewStore builds a visitor store. newWidget builds each visitor's decoder
// widget and system is the chat persona handed to new sessions.
func NewStore(ttl time.Duration, newWidget func() *decoder.Widget, system string) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if newWidget == nil {
		newWidget = func() *decoder.Widget {
			return decoder.NewWidget(nil, decoder.DefaultLinkBuilder(), 0)
		}
	}
	s := &Store{
		cache:     gocache.New(ttl, ttl/2),
		newWidget: newWidget,
		system:    system,
	}
	s.cache.OnEvicted(func(string, interface{}) { s.notify() })
	return s
}

// OnChange registers a callback invoked with the visitor count whenever a
// visitor is added or removed.
func (s *Store) OnChange(fn func(count int)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// GetOrCreate returns the live visitor for id. Unknown or expired IDs are
// never adopted: a new visitor with a fresh ID is returned instead.
func (s *Store) GetOrCreate(id string) (*Visitor, bool) {
	s.mu.Lock()
	if visitor, ok := s.lookup(id); ok {
		s.mu.Unlock()
		return visitor, false
	}
	visitor := &Visitor{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Decoder:   s.newWidget(),
		system:    s.system,
	}
	s.cache.SetDefault(visitor.ID, visitor)
	s.mu.Unlock()
	s.notify()
	return visitor, true
}

func (s *Store) Get(id string) (*Visitor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

func (s *Store) Delete(id string) {
	s.cache.Delete(strings.TrimSpace(id))
}

func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// lookup refreshes the TTL of a hit. Callers hold s.mu.
func (s *Store) lookup(id string) (*Visitor, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	value, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	visitor, ok := value.(*Visitor)
	if !ok {
		return nil, false
	}
	s.cache.SetDefault(id, visitor)
	return visitor, true
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(s.cache.ItemCount())
	}
}
