package storage

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Key prefixes (simulating column families)
const (
	PrefixTip     = "tip:"
	PrefixFees    = "fee:"
	PrefixMempool = "mem:"
	PrefixBlocks  = "blk:"
	PrefixPrices  = "prc:"
	PrefixAddress = "adr:"
	PrefixTx      = "txs:"
	PrefixHistory = "hst:"
)

// Column family names
const (
	CFTip     = "tip"
	CFFees    = "fees"
	CFMempool = "mempool"
	CFBlocks  = "blocks"
	CFPrices  = "prices"
	CFAddress = "address"
	CFTx      = "tx"
	CFHistory = "history"
)

// Column family name to prefix mapping
var cfPrefixes = map[string]string{
	CFTip:     PrefixTip,
	CFFees:    PrefixFees,
	CFMempool: PrefixMempool,
	CFBlocks:  PrefixBlocks,
	CFPrices:  PrefixPrices,
	CFAddress: PrefixAddress,
	CFTx:      PrefixTx,
	CFHistory: PrefixHistory,
}

// ColumnFamilies lists every column family name
func ColumnFamilies() []string {
	return []string{CFTip, CFFees, CFMempool, CFBlocks, CFPrices, CFAddress, CFTx, CFHistory}
}

// PebbleDB wraps the Pebble database
type PebbleDB struct {
	db *pebble.DB
}

// WriteBatch wraps Pebble's batch for atomic writes
type WriteBatch struct {
	batch *pebble.Batch
	db    *PebbleDB
}

// Iterator wraps Pebble's iterator
type Iterator struct {
	iter     *pebble.Iterator
	cfPrefix []byte // column family prefix stripped from keys
}

// NewMemPebbleDB creates a PebbleDB backed by an in-memory filesystem.
// Nothing survives Close.
func NewMemPebbleDB() (*PebbleDB, error) {
	opts := &pebble.Options{
		FS:    vfs.NewMem(),
		Cache: pebble.NewCache(64 << 20),
	}
	defer opts.Cache.Unref()

	db, err := pebble.Open("", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return &PebbleDB{db: db}, nil
}

// Close closes the database
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

// prefixKey creates a prefixed key for the given column family
func (p *PebbleDB) prefixKey(cf string, key []byte) ([]byte, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}
	return append([]byte(prefix), key...), nil
}

// Put stores a key-value pair in the specified column family.
// Cached data is disposable, so writes are never fsynced.
func (p *PebbleDB) Put(cf string, key, value []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Set(prefixedKey, value, pebble.NoSync)
}

// Get retrieves a value from the specified column family.
// A missing key returns nil without error.
func (p *PebbleDB) Get(cf string, key []byte) ([]byte, error) {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return nil, err
	}

	value, closer, err := p.db.Get(prefixedKey)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's only valid until closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Delete removes a key from the specified column family
func (p *PebbleDB) Delete(cf string, key []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Delete(prefixedKey, pebble.NoSync)
}

// NewBatch creates a new write batch
func (p *PebbleDB) NewBatch() *WriteBatch {
	return &WriteBatch{
		batch: p.db.NewBatch(),
		db:    p,
	}
}

// Delete adds a delete operation to the batch
func (b *WriteBatch) Delete(cf string, key []byte) error {
	prefixedKey, err := b.db.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return b.batch.Delete(prefixedKey, nil)
}

// Count returns the number of operations in the batch
func (b *WriteBatch) Count() uint32 {
	return b.batch.Count()
}

// Commit writes the batch to the database
func (b *WriteBatch) Commit() error {
	return b.batch.Commit(pebble.NoSync)
}

// Close releases the batch's resources
func (b *WriteBatch) Close() error {
	return b.batch.Close()
}

// NewIterator creates an iterator over the specified column family
func (p *PebbleDB) NewIterator(cf string) (*Iterator, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}

	prefixBytes := []byte(prefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixBytes,
		UpperBound: prefixUpperBound(prefixBytes),
	})
	if err != nil {
		return nil, err
	}

	iter.First()
	return &Iterator{iter: iter, cfPrefix: prefixBytes}, nil
}

// prefixUpperBound returns the upper bound for prefix iteration
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Valid returns true if the iterator is positioned at a valid key
func (i *Iterator) Valid() bool {
	return i.iter.Valid()
}

// Next advances the iterator to the next key
func (i *Iterator) Next() bool {
	return i.iter.Next()
}

// Key returns a copy of the current key without the column family prefix
func (i *Iterator) Key() []byte {
	key := i.iter.Key()
	if bytes.HasPrefix(key, i.cfPrefix) {
		key = key[len(i.cfPrefix):]
	}
	out := make([]byte, len(key))
	copy(out, key)
	return out
}

// Value returns the current value, valid until the iterator moves
func (i *Iterator) Value() []byte {
	return i.iter.Value()
}

// Close closes the iterator
func (i *Iterator) Close() error {
	return i.iter.Close()
}
