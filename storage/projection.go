package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	dareme_protocol "dareme-cli/solana"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrCantDecode  = errors.New("storage: can't decode value")
	ErrCantEncode  = errors.New("storage: can't encode value")
	ErrInvalidKey  = errors.New("storage: invalid key")
	ErrStoreClosed = errors.New("storage: store is closed")
)

var (
	daresBucket         = []byte("dares")
	pendingBucket       = []byte("pending")
	seenBucket          = []byte("seen")
	notificationsBucket = []byte("notifications")
)

const pendingSeparator = "|"

// DareFilter narrows ListDares. Zero fields match everything.
type DareFilter struct {
	Status *dareme_protocol.DareStatus
	Wallet string // challenger or daree
}

func (f DareFilter) match(r *DareRecord) bool {
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Wallet != "" && r.Challenger != f.Wallet && r.Daree != f.Wallet {
		return false
	}
	return true
}

// ProjectionStore persists the indexer's view of the chain in a bbolt file.
type ProjectionStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenProjectionStore opens (or creates) the database at path.
func OpenProjectionStore(path string) (*ProjectionStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open projection store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{daresBucket, pendingBucket, seenBucket, notificationsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &ProjectionStore{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (s *ProjectionStore) Close() error {
	return s.db.Close()
}

func (s *ProjectionStore) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(fn)
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrStoreClosed
	}
	return err
}

func (s *ProjectionStore) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(fn)
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrStoreClosed
	}
	return err
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrCantEncode, key, err)
	}
	return b.Put(key, data)
}

func getJSON(b *bolt.Bucket, key []byte, v any) error {
	data := b.Get(key)
	if data == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrCantDecode, key, err)
	}
	return nil
}

// GetDare returns the record stored under pda.
func (s *ProjectionStore) GetDare(ctx context.Context, pda string) (*DareRecord, error) {
	var rec DareRecord
	if err := s.view(ctx, func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(daresBucket), []byte(pda), &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutDare inserts or replaces rec. UpdatedAt is stamped, CreatedAt kept if set.
func (s *ProjectionStore) PutDare(ctx context.Context, rec *DareRecord) error {
	if rec.PDA == "" {
		return fmt.Errorf("%w: empty dare address", ErrInvalidKey)
	}
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return s.update(ctx, func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(daresBucket), []byte(rec.PDA), rec)
	})
}

// ListDares returns matching records, newest first.
func (s *ProjectionStore) ListDares(ctx context.Context, filter DareFilter) ([]DareRecord, error) {
	var out []DareRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(daresBucket).ForEach(func(k, v []byte) error {
			var rec DareRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: %q: %w", ErrCantDecode, k, err)
			}
			if filter.match(&rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PDA < out[j].PDA
	})
	return out, nil
}

// Seen reports whether the event key was already processed.
func (s *ProjectionStore) Seen(ctx context.Context, key string) (bool, error) {
	var seen bool
	err := s.view(ctx, func(tx *bolt.Tx) error {
		seen = tx.Bucket(seenBucket).Get([]byte(key)) != nil
		return nil
	})
	return seen, err
}

// MarkSeen records the event key as processed.
func (s *ProjectionStore) MarkSeen(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty event key", ErrInvalidKey)
	}
	stamp := []byte(s.now().UTC().Format(time.RFC3339Nano))
	return s.update(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(seenBucket).Put([]byte(key), stamp)
	})
}

func pendingKey(dare, eventKey string) []byte {
	return []byte(dare + pendingSeparator + eventKey)
}

// AddPending queues an event that could not be applied yet.
func (s *ProjectionStore) AddPending(ctx context.Context, pe PendingEvent) error {
	dare := pe.Event.Dare().String()
	if pe.ReceivedAt.IsZero() {
		pe.ReceivedAt = s.now().UTC()
	}
	return s.update(ctx, func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(pendingBucket), pendingKey(dare, pe.Event.Key()), pe)
	})
}

// PendingFor returns the queued events of one dare in slot order.
func (s *ProjectionStore) PendingFor(ctx context.Context, dare string) ([]PendingEvent, error) {
	prefix := []byte(dare + pendingSeparator)
	var out []PendingEvent
	err := s.view(ctx, func(tx *bolt.Tx) error {
		c := tx.Bucket(pendingBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var pe PendingEvent
			if err := json.Unmarshal(v, &pe); err != nil {
				return fmt.Errorf("%w: %q: %w", ErrCantDecode, k, err)
			}
			out = append(out, pe)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortPending(out)
	return out, nil
}

// DeletePending drops one queued event. Missing entries are not an error.
func (s *ProjectionStore) DeletePending(ctx context.Context, dare, eventKey string) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete(pendingKey(dare, eventKey))
	})
}

// ListPending returns every queued event in slot order.
func (s *ProjectionStore) ListPending(ctx context.Context) ([]PendingEvent, error) {
	var out []PendingEvent
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).ForEach(func(k, v []byte) error {
			var pe PendingEvent
			if err := json.Unmarshal(v, &pe); err != nil {
				return fmt.Errorf("%w: %q: %w", ErrCantDecode, k, err)
			}
			out = append(out, pe)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortPending(out)
	return out, nil
}

func sortPending(events []PendingEvent) {
	raw := make([]dareme_protocol.DareEvent, len(events))
	index := make(map[string]PendingEvent, len(events))
	for i, pe := range events {
		raw[i] = pe.Event
		index[pe.Event.Key()] = pe
	}
	dareme_protocol.SortEvents(raw)
	for i := range raw {
		events[i] = index[raw[i].Key()]
	}
}

// AddNotification stores n. An empty ID is rejected.
func (s *ProjectionStore) AddNotification(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty notification id", ErrInvalidKey)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	return s.update(ctx, func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(notificationsBucket), []byte(n.ID), n)
	})
}

// NotificationsFor lists a wallet's notifications, newest first.
func (s *ProjectionStore) NotificationsFor(ctx context.Context, wallet string) ([]Notification, error) {
	var out []Notification
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(notificationsBucket).ForEach(func(k, v []byte) error {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("%w: %q: %w", ErrCantDecode, k, err)
			}
			if n.Wallet == wallet {
				out = append(out, n)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MarkNotificationRead flags the notification as read.
func (s *ProjectionStore) MarkNotificationRead(ctx context.Context, id string) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(notificationsBucket)
		var n Notification
		if err := getJSON(b, []byte(id), &n); err != nil {
			return err
		}
		n.Read = true
		return putJSON(b, []byte(id), n)
	})
}
