package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meikuraledutech/dagedit"
)

var (
	errGraphNotFound = errors.New("graph not found")
	errGraphExists   = errors.New("graph already exists")
)

// session owns one graph's editor. mu serializes mutations on that graph;
// the editor itself does no locking.
type session struct {
	mu     sync.Mutex
	editor *dagedit.Editor
}

// sessions keeps one live editor per graph id, loading graphs from the store
// on first use. store may be nil, in which case graphs live in memory only.
type sessions struct {
	mu    sync.Mutex
	byID  map[string]*session
	store dagedit.Store
	opts  []dagedit.Option
}

func newSessions(store dagedit.Store, opts ...dagedit.Option) *sessions {
	return &sessions{byID: make(map[string]*session), store: store, opts: opts}
}

// create seeds a new graph and saves it.
func (s *sessions) create(ctx context.Context, seed dagedit.Graph) (*session, error) {
	ed, err := dagedit.NewEditor(seed, s.opts...)
	if err != nil {
		return nil, err
	}
	id := ed.Graph().ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; ok {
		return nil, errGraphExists
	}
	if s.store != nil {
		existing, err := s.store.GetGraph(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errGraphExists
		}
	}

	sess := &session{editor: ed}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.byID[id] = sess
	return sess, nil
}

// get returns the live session for id, loading it from the store if needed.
func (s *sessions) get(ctx context.Context, id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byID[id]; ok {
		return sess, nil
	}
	if s.store == nil {
		return nil, errGraphNotFound
	}

	g, err := s.store.GetGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errGraphNotFound
	}
	ed, err := dagedit.NewEditor(*g, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", id, err)
	}

	sess := &session{editor: ed}
	s.byID[id] = sess
	return sess, nil
}

// delete drops the graph together with its history.
// No error if the graph doesn't exist.
func (s *sessions) delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byID, id)
	if s.store != nil {
		return s.store.DeleteGraph(ctx, id)
	}
	return nil
}

// save persists the session's committed graph. Callers hold sess.mu or own sess exclusively.
func (s *sessions) save(ctx context.Context, sess *session) error {
	if s.store == nil {
		return nil
	}
	g := sess.editor.Graph()
	return s.store.SaveGraph(ctx, &g)
}
