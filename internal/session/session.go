// Package session stores each user's cart, conversation state and pending
// order in a key-value store and serializes access per user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xmtea/whatsapp-bot/internal/domain/cart"
	"github.com/xmtea/whatsapp-bot/internal/domain/conversation"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kv"
)

// Session is everything the bot keeps for one user between messages
type Session struct {
	UserID  string
	State   *conversation.State
	Cart    *cart.Cart
	Pending *order.Pending
}

func newSession(userID string) *Session {
	return &Session{
		UserID: userID,
		State:  conversation.NewState(userID),
		Cart:   cart.New(userID),
	}
}

// Reset clears the cart, drops the pending order and returns to Idle
func (s *Session) Reset() {
	s.Cart.Clear()
	s.State.Reset()
	s.Pending = nil
}

func CartKey(userID string) string    { return "cart:" + userID }
func StateKey(userID string) string   { return "state:" + userID }
func PendingKey(userID string) string { return "pending:" + userID }

// Store loads and saves sessions. Update is the only way callers mutate a
// session; it holds the user's lock from load to save.
type Store struct {
	kv    kv.Store
	locks *KeyedMutex
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store, locks: NewKeyedMutex()}
}

// Update loads the user's session, runs fn and saves the result. Nothing is
// saved when fn returns an error. Calls for the same user run one at a time;
// calls for different users never wait on each other.
func (s *Store) Update(ctx context.Context, userID string, fn func(*Session) error) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	return s.save(ctx, sess)
}

// Get returns a read-only snapshot of the user's session
func (s *Store) Get(ctx context.Context, userID string) (*Session, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.load(ctx, userID)
}

func (s *Store) load(ctx context.Context, userID string) (*Session, error) {
	sess := newSession(userID)

	if err := s.getJSON(ctx, CartKey(userID), sess.Cart); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if err := s.getJSON(ctx, StateKey(userID), sess.State); err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var pending order.Pending
	err := s.getJSON(ctx, PendingKey(userID), &pending)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending order: %w", err)
	}
	if pending.OrderID != "" {
		sess.Pending = &pending
	}

	// stored values never override whose session this is
	sess.Cart.UserID = userID
	sess.State.UserID = userID
	if sess.Cart.Items == nil {
		sess.Cart.Items = []cart.CartItem{}
	}
	return sess, nil
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	if sess.Cart.IsEmpty() && sess.State.CurrentPhase() == conversation.PhaseIdle && sess.State.SelectedBusinessID == "" && sess.Pending == nil {
		// nothing worth keeping
		return s.kv.Delete(ctx, CartKey(sess.UserID), StateKey(sess.UserID), PendingKey(sess.UserID))
	}

	if err := s.setJSON(ctx, CartKey(sess.UserID), sess.Cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if err := s.setJSON(ctx, StateKey(sess.UserID), sess.State); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if sess.Pending == nil {
		if err := s.kv.Delete(ctx, PendingKey(sess.UserID)); err != nil {
			return fmt.Errorf("failed to drop pending order: %w", err)
		}
		return nil
	}
	if err := s.setJSON(ctx, PendingKey(sess.UserID), sess.Pending); err != nil {
		return fmt.Errorf("failed to save pending order: %w", err)
	}
	return nil
}

// getJSON leaves v untouched when the key does not exist
func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, data)
}
