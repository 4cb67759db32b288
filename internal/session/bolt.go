package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"go.etcd.io/bbolt"
)

const sessionsBucket = "sessions"

// BoltStore persists sessions to a bbolt file so drafts survive restarts.
// Expired records are hidden on read and removed by Cleanup.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) (*models.Session, error) {
	var sess models.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(sessionsBucket)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *BoltStore) Put(ctx context.Context, sess *models.Session, ttl time.Duration) error {
	sess.ExpiresAt = s.now().Add(ttl)
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.CustomerKey, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Put([]byte(sess.CustomerKey), data)
	})
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Delete([]byte(key))
	})
}

func (s *BoltStore) Active(ctx context.Context) (int, error) {
	now := s.now()
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).ForEach(func(k, v []byte) error {
			var sess models.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return nil
			}
			if !sess.Expired(now) {
				count++
			}
			return nil
		})
	})
	return count, err
}

// Cleanup removes expired and unreadable records.
func (s *BoltStore) Cleanup(ctx context.Context) (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionsBucket))
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var sess models.Session
			if err := json.Unmarshal(v, &sess); err != nil || sess.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
