package store

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/schema"
)

// ErrSerialization is the sentinel base error for a malformed record.
var ErrSerialization = errors.New("serialization error")

// ErrStore is the sentinel base error for an underlying I/O failure.
var ErrStore = errors.New("store error")

func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrStore)
}

// Metadata is the decoded form of metadata.dat (spec §6).
type Metadata struct {
	Schema      *schema.Schema
	Snapshots   archiverow.Listing
	NextRowID   int64
	NextColID   int64
	NextVersion int64
	PrimaryKey  []string
}

// RowWriter streams rows out to the row file in the order they are written
// (spec §9, "Streaming writer for the row file"). Archive.persist writes them
// in ascending RowID order, not in merge-key order. The persistent variant
// stages rows under a separate key range and swaps them in on Close; the
// in-memory variant accumulates them into a slice.
type RowWriter interface {
	Write(row *archiverow.Row) error
	Close() error
}

// RowReader streams rows back in storage order.
type RowReader interface {
	Next() (*archiverow.Row, bool, error)
	Close() error
}

// Store is the persistence boundary the archive facade depends on. Its
// concrete implementations (MemoryStore, BadgerStore) are peripheral per
// spec §1 ("the key-value/file store that holds serialized rows and
// metadata" is named as an external collaborator), but the interface itself
// is core: the merge/checkout/rollback algorithms are written against it,
// never against a concrete backend.
type Store interface {
	// OpenWriter begins writing a fresh row stream that will atomically
	// replace the current one when the writer is closed without error.
	OpenWriter() (RowWriter, error)

	// OpenReader streams the currently-committed row file.
	OpenReader() (RowReader, error)

	// LoadMetadata reads metadata.dat. Returns (nil, false, nil) for a
	// brand-new, never-committed store.
	LoadMetadata() (*Metadata, bool, error)

	// SaveMetadata atomically persists metadata.dat.
	SaveMetadata(m *Metadata) error

	// Close releases any held resources.
	Close() error
}
