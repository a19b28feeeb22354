package offload

import (
	"context"
	"errors"
	"sync"
)

// Handle is an open file that can own offload tokens. The registry never
// owns a Handle; it stores only the HandleRef and attaches a Link to the
// handle's LinkSet.
type Handle interface {
	// OffloadRef returns the handle's identity. It must not change while
	// the handle is open.
	OffloadRef() HandleRef

	// OffloadLinks returns the LinkSet owned by the handle.
	OffloadLinks() *LinkSet
}

var errLinkSetClosed = errors.New("offload: handle link set is closed")

// Link couples one token store entry to the handle that owns it. Releasing
// the link deletes the entry.
type Link struct {
	owner *Context
	token Token
	ref   HandleRef
}

// Token returns the token the link is responsible for.
func (l *Link) Token() Token {
	return l.token
}

// Ref returns the handle the token is bound to.
func (l *Link) Ref() HandleRef {
	return l.ref
}

// LinkSet holds the links owned by one handle. The zero value is ready to
// use. The handle's owner must call Close when the handle is closed.
type LinkSet struct {
	mu     sync.Mutex
	links  map[string]*Link
	closed bool
}

// NewLinkSet returns an empty LinkSet.
func NewLinkSet() *LinkSet {
	return &LinkSet{}
}

func (s *LinkSet) add(l *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errLinkSetClosed
	}
	if s.links == nil {
		s.links = make(map[string]*Link)
	}
	s.links[string(l.token)] = l
	return nil
}

// Len returns the number of live links.
func (s *LinkSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// Tokens returns copies of the tokens currently owned.
func (s *LinkSet) Tokens() []Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Token, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l.token.Clone())
	}
	return out
}

// Closed reports whether Close has been called.
func (s *LinkSet) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases every link, removing their tokens from the registry.
// Release failures are logged and counted, never returned. Close is
// idempotent and no links can be added afterwards.
func (s *LinkSet) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	links := s.links
	s.links = nil
	s.mu.Unlock()

	for _, l := range links {
		l.owner.release(context.Background(), l)
	}
}
