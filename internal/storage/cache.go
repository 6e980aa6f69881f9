package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// expiryLen is the size of the expiry header stored before each value
const expiryLen = 8

// Cache stores JSON encoded upstream responses with a time to live
type Cache struct {
	db  *PebbleDB
	now func() time.Time

	closeOnce sync.Once
	janitor   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewCache creates a Cache backed by an in-memory Pebble database
func NewCache(now func() time.Time) (*Cache, error) {
	db, err := NewMemPebbleDB()
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		db:   db,
		now:  now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Get decodes the value for key into dst and reports whether a live
// entry was found. Expired entries are deleted.
func (c *Cache) Get(cf, key string, dst interface{}) (bool, error) {
	data, err := c.db.Get(cf, []byte(key))
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if len(data) < expiryLen {
		return false, c.db.Delete(cf, []byte(key))
	}

	if c.expired(data) {
		return false, c.db.Delete(cf, []byte(key))
	}

	if err := json.Unmarshal(data[expiryLen:], dst); err != nil {
		return false, fmt.Errorf("failed to decode cached %s/%s: %w", cf, key, err)
	}
	return true, nil
}

// Set stores v under key until ttl elapses. A non-positive ttl stores nothing.
func (c *Cache) Set(cf, key string, v interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", cf, key, err)
	}

	data := make([]byte, expiryLen+len(payload))
	binary.BigEndian.PutUint64(data, uint64(c.now().Add(ttl).UnixNano()))
	copy(data[expiryLen:], payload)

	return c.db.Put(cf, []byte(key), data)
}

// PurgeExpired deletes every expired entry and returns how many were removed
func (c *Cache) PurgeExpired() (int, error) {
	batch := c.db.NewBatch()
	defer batch.Close()

	for _, cf := range ColumnFamilies() {
		iter, err := c.db.NewIterator(cf)
		if err != nil {
			return 0, err
		}
		for ; iter.Valid(); iter.Next() {
			if v := iter.Value(); len(v) < expiryLen || c.expired(v) {
				if err := batch.Delete(cf, iter.Key()); err != nil {
					iter.Close()
					return 0, err
				}
			}
		}
		if err := iter.Close(); err != nil {
			return 0, err
		}
	}

	n := int(batch.Count())
	if n == 0 {
		return 0, nil
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// StartJanitor purges expired entries every interval until Close.
// It must be called at most once.
func (c *Cache) StartJanitor(interval time.Duration, onPurge func(n int, err error)) {
	c.janitor = true
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				n, err := c.PurgeExpired()
				if onPurge != nil {
					onPurge(n, err)
				}
			}
		}
	}()
}

// Close stops the janitor, if running, and releases the database
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		if c.janitor {
			<-c.done
		}
		err = c.db.Close()
	})
	return err
}

func (c *Cache) expired(data []byte) bool {
	expiry := int64(binary.BigEndian.Uint64(data[:expiryLen]))
	return c.now().UnixNano() >= expiry
}
