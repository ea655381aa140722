package notifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/fastygo/tasktracker/domain"
)

var (
	pendingBucket   = []byte("pending")
	deliveredBucket = []byte("delivered")
	metaBucket      = []byte("meta")

	tokenKey = []byte("push_token")
)

// Queue persists scheduled notifications until they are due.
// Pending keys sort by delivery time.
type Queue struct {
	db *bbolt.DB
}

// OpenQueue initializes the bolt file and ensures the buckets exist.
func OpenQueue(path string) (*Queue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{pendingBucket, deliveredBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Queue{db: db}, nil
}

// Enqueue stores a notification under its delivery-time key.
func (q *Queue) Enqueue(n domain.Notification) error {
	if q == nil || q.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return q.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingBucket).Put(pendingKey(n), payload)
	})
}

// Due returns up to limit pending notifications whose delivery time is not after now.
func (q *Queue) Due(now time.Time, limit int) ([]domain.Notification, error) {
	if q == nil || q.db == nil {
		return nil, bbolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	upper := []byte(fmt.Sprintf("%020d_\xff", now.UnixNano()))
	var due []domain.Notification
	err := q.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(pendingBucket).Cursor()
		for k, v := c.First(); k != nil && len(due) < limit; k, v = c.Next() {
			if string(k) > string(upper) {
				break
			}
			var n domain.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				continue
			}
			due = append(due, n)
		}
		return nil
	})
	return due, err
}

// MarkDelivered moves a notification from pending to delivered in one transaction.
func (q *Queue) MarkDelivered(n domain.Notification) error {
	if q == nil || q.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return q.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(pendingBucket).Delete(pendingKey(n)); err != nil {
			return err
		}
		return tx.Bucket(deliveredBucket).Put([]byte(n.ID), payload)
	})
}

// Delivered looks up a delivered notification by id.
func (q *Queue) Delivered(id string) (domain.Notification, bool, error) {
	var n domain.Notification
	if q == nil || q.db == nil {
		return n, false, bbolt.ErrDatabaseNotOpen
	}
	var found bool
	err := q.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(deliveredBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &n)
	})
	return n, found, err
}

// Size returns the number of pending notifications.
func (q *Queue) Size() (int, error) {
	if q == nil || q.db == nil {
		return 0, bbolt.ErrDatabaseNotOpen
	}
	var count int
	err := q.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(pendingBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes delivered notifications created before olderThan.
func (q *Queue) Cleanup(olderThan time.Time) error {
	if q == nil || q.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return q.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(deliveredBucket)

		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var n domain.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return nil
			}
			if n.CreatedAt.Before(olderThan) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Token returns the persisted installation token, if any.
func (q *Queue) Token() (string, error) {
	if q == nil || q.db == nil {
		return "", bbolt.ErrDatabaseNotOpen
	}
	var token string
	err := q.db.View(func(tx *bbolt.Tx) error {
		token = string(tx.Bucket(metaBucket).Get(tokenKey))
		return nil
	})
	return token, err
}

func (q *Queue) SetToken(token string) error {
	if q == nil || q.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return q.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put(tokenKey, []byte(token))
	})
}

// Ping reports whether the bolt file is still usable.
func (q *Queue) Ping() error {
	if q == nil || q.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return q.db.View(func(*bbolt.Tx) error { return nil })
}

// Close closes the Bolt database.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

func pendingKey(n domain.Notification) []byte {
	return []byte(fmt.Sprintf("%020d_%s", n.DeliverAt.UnixNano(), n.ID))
}
