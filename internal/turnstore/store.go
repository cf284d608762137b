// Package turnstore owns turn documents for the duration of one user turn.
// State is keyed by an opaque session key; at most one live turn document
// and one in-flight orchestration exist per key at a time.
//
// A second message arriving for a key with a turn in flight is handled by a
// declared policy, never by accident: either the prior turn is superseded
// (its context is cancelled and its document replaced) or the new message is
// rejected.
package turnstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/courtside/internal/turn"
)

// Policy decides what happens when a turn arrives for a key that already has
// one in flight.
type Policy string

const (
	// PolicySupersede cancels the in-flight turn and replaces its document.
	PolicySupersede Policy = "supersede"
	// PolicyReject refuses the new turn while one is in flight.
	PolicyReject Policy = "reject"
)

// Valid reports whether p is a recognized policy.
func (p Policy) Valid() bool {
	return p == PolicySupersede || p == PolicyReject
}

// ErrTurnInFlight is returned under PolicyReject when a key already has an
// active turn.
type ErrTurnInFlight struct {
	SessionKey string
}

func (e *ErrTurnInFlight) Error() string {
	return fmt.Sprintf("a turn is already in flight for session %s", e.SessionKey)
}

type entry struct {
	doc    *turn.Doc
	cancel context.CancelFunc
}

// Store is the keyed turn state holder.
type Store struct {
	mu     sync.Mutex
	policy Policy
	turns  map[string]*entry
}

// New creates a store with the given resubmission policy.
func New(policy Policy) (*Store, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown turn store policy %q", policy)
	}
	return &Store{
		policy: policy,
		turns:  make(map[string]*entry),
	}, nil
}

// Begin registers doc as the live turn for its session key and returns a
// context that is cancelled if the turn is later superseded.
//
// If a turn is already in flight for the key, the configured policy applies:
// PolicySupersede cancels it and installs doc (last plan wins), PolicyReject
// returns *ErrTurnInFlight and leaves the in-flight turn untouched.
func (s *Store) Begin(ctx context.Context, doc *turn.Doc) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.turns[doc.SessionKey]; ok {
		if s.policy == PolicyReject {
			return nil, &ErrTurnInFlight{SessionKey: doc.SessionKey}
		}
		prior.cancel()
	}

	turnCtx, cancel := context.WithCancel(ctx)
	s.turns[doc.SessionKey] = &entry{doc: doc, cancel: cancel}
	return turnCtx, nil
}

// Finish retires the turn for doc's session key. The document is discarded
// only if doc is still the live turn; a superseded turn finishing late never
// clobbers its replacement.
func (s *Store) Finish(doc *turn.Doc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.turns[doc.SessionKey]
	if !ok || cur.doc.ID != doc.ID {
		return
	}
	cur.cancel()
	delete(s.turns, doc.SessionKey)
}

// Get returns the live turn document for a session key, if any.
func (s *Store) Get(sessionKey string) (*turn.Doc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.turns[sessionKey]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Len returns the number of live turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
