package store

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/kasuganosora/historystore/pkg/archiverow"
)

// Key prefixes for the Badger-backed Store (grounded on the teacher's
// pkg/resource/badger key-encoding scheme, narrowed to an archive's two
// logical files).
const (
	prefixRow      = "row:"     // committed row file, ordered by write sequence
	prefixStaging  = "staging:" // rows being written by an in-flight OpenWriter
	keyMetadata    = "meta:"
)

// BadgerStore is the persistent Store variant (spec §6, SPEC_FULL.md §B):
// rows.dat and metadata.dat are represented as key ranges in one Badger
// database rather than two flat files, with the commit-time atomic
// stage-then-swap done inside a single Badger transaction.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if absent) a Badger database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, wrapStore("open badger store", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return wrapStore("close badger store", s.db.Close())
}

func rowKey(prefix string, seq uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], seq)
	return buf
}

func (s *BadgerStore) OpenWriter() (RowWriter, error) {
	// Clear any leftover staging area from a prior failed commit before
	// starting a fresh one (spec §7: a failed commit must leave state as it
	// was; a stale staging area must never leak into a later commit).
	if err := s.dropPrefix([]byte(prefixStaging)); err != nil {
		return nil, err
	}
	return &badgerWriter{store: s}, nil
}

func (s *BadgerStore) dropPrefix(prefix []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

type badgerWriter struct {
	store  *BadgerStore
	seq    uint64
	closed bool
}

func (w *badgerWriter) Write(row *archiverow.Row) error {
	data, err := EncodeRow(row)
	if err != nil {
		return err
	}
	key := rowKey(prefixStaging, w.seq)
	w.seq++
	return wrapStore("write staged row", w.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}))
}

// Close atomically swaps the staged row stream in for the previously
// committed one: the old "row:" range is dropped and the "staging:" range is
// renamed to "row:" within one Badger transaction, so readers observe either
// the full pre-commit or full post-commit state (spec §5).
func (w *badgerWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	return wrapStore("swap in committed rows", w.store.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var oldKeys [][]byte
		for it.Seek([]byte(prefixRow)); it.ValidForPrefix([]byte(prefixRow)); it.Next() {
			oldKeys = append(oldKeys, it.Item().KeyCopy(nil))
		}
		for _, k := range oldKeys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		var staged []struct {
			key   []byte
			value []byte
		}
		for it.Seek([]byte(prefixStaging)); it.ValidForPrefix([]byte(prefixStaging)); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			staged = append(staged, struct {
				key   []byte
				value []byte
			}{k, v})
		}
		for i, s := range staged {
			if err := txn.Delete(s.key); err != nil {
				return err
			}
			if err := txn.Set(rowKey(prefixRow, uint64(i)), s.value); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *BadgerStore) OpenReader() (RowReader, error) {
	txn := s.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	it.Seek([]byte(prefixRow))
	return &badgerReader{txn: txn, it: it}, nil
}

type badgerReader struct {
	txn *badger.Txn
	it  *badger.Iterator
}

func (r *badgerReader) Next() (*archiverow.Row, bool, error) {
	if !r.it.ValidForPrefix([]byte(prefixRow)) {
		return nil, false, nil
	}
	item := r.it.Item()
	var data []byte
	err := item.Value(func(v []byte) error {
		data = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, false, wrapStore("read row", err)
	}
	row, err := DecodeRow(data)
	if err != nil {
		return nil, false, err
	}
	r.it.Next()
	return row, true, nil
}

func (r *badgerReader) Close() error {
	r.it.Close()
	r.txn.Discard()
	return nil
}

func (s *BadgerStore) LoadMetadata() (*Metadata, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMetadata))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			data = append([]byte{}, v...)
			return nil
		})
	})
	if err != nil {
		return nil, false, wrapStore("load metadata", err)
	}
	if data == nil {
		return nil, false, nil
	}
	m, err := DecodeMetadata(data)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (s *BadgerStore) SaveMetadata(m *Metadata) error {
	data, err := EncodeMetadata(m)
	if err != nil {
		return err
	}
	return wrapStore("save metadata", s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyMetadata), data)
	}))
}
