package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/document"
	"github.com/kasuganosora/historystore/pkg/schema"
	"github.com/kasuganosora/historystore/pkg/store"
	"github.com/kasuganosora/historystore/pkg/value"
)

// Archive is the facade spec §4.7 describes: commit, checkout, apply,
// rollback, snapshots, reader, all driven through a Store. One Archive
// serializes its writers with mu (spec §5, "single writer, many readers");
// readers (Checkout/Reader) only ever see data already swapped in by a
// completed commit, never a half-built one.
type Archive struct {
	mu sync.Mutex

	st store.Store

	schema *schema.Schema
	// allRows holds every row the archive has ever created, keyed by RowID,
	// including ones no longer alive at the current version. Needed so
	// Checkout/Rollback can see a row's full history, not just its current
	// state.
	allRows map[int64]*archiverow.Row
	// liveSorted holds the rows alive at the current version, ascending by
	// their merge key (spec §4.4, stream "A"). Maintained incrementally so
	// Commit never has to re-sort the whole archive.
	liveSorted []*archiverow.Row

	snapshots archiverow.Listing

	nextRowID   int64
	nextColID   int64
	nextVersion int64

	primaryKey  []string // nil for an un-keyed archive
	matchPolicy schema.ColumnMatchPolicy
}

// CreateOptions configures a brand-new Archive (spec §4.7 constructor).
type CreateOptions struct {
	// PrimaryKey names the key columns. Nil means an un-keyed archive whose
	// rows are identified by the Document-supplied row index instead
	// (spec §4.4, "Key semantics").
	PrimaryKey []string
	// InitialDocument seeds version 0. Required for a keyed archive so the
	// key columns are established at construction time (spec §4.7); optional
	// for an un-keyed archive, which may start empty and take its first
	// Commit later.
	InitialDocument document.Document
	// ColumnMatchPolicy selects how incoming Document columns align with
	// existing ones across commits. Only MatchByName is exercised in
	// practice: the Document interface carries column names, not the stable
	// external identifiers MatchByID would need (SPEC_FULL.md §C.4).
	ColumnMatchPolicy schema.ColumnMatchPolicy
	// Store backs the archive. A fresh MemoryStore is used if nil.
	Store store.Store
	// SourceID identifies the provenance of InitialDocument (spec §4.7
	// SnapshotDescriptor.SourceID). A fresh uuid is generated if empty.
	SourceID string
	// CommittedAt stamps the initial commit's descriptor (unix nanos).
	CommittedAt int64
}

// New creates a brand-new Archive, or reopens one already present in
// opts.Store (spec §4.7: "Open" and "Create" share a constructor so a
// re-run against an existing store resumes rather than double-initializes).
func New(ctx context.Context, opts CreateOptions) (*Archive, error) {
	st := opts.Store
	if st == nil {
		st = store.NewMemoryStore()
	}

	a := &Archive{
		st:          st,
		schema:      schema.NewSchema(),
		allRows:     map[int64]*archiverow.Row{},
		primaryKey:  opts.PrimaryKey,
		matchPolicy: opts.ColumnMatchPolicy,
	}

	meta, ok, err := st.LoadMetadata()
	if err != nil {
		return nil, err
	}
	if ok {
		if err := a.loadFrom(meta); err != nil {
			return nil, err
		}
		return a, nil
	}

	if len(opts.PrimaryKey) > 0 && opts.InitialDocument == nil {
		return nil, errSchemaf("keyed archive requires an initial document to establish its key columns")
	}

	if opts.InitialDocument != nil {
		sourceID := opts.SourceID
		if sourceID == "" {
			sourceID = uuid.NewString()
		}
		if _, err := a.commit(ctx, opts.InitialDocument, archiverow.Descriptor{
			CommittedAt: opts.CommittedAt,
			Description: "initial",
			Operation:   "commit",
			SourceID:    sourceID,
		}); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Archive) loadFrom(m *store.Metadata) error {
	r, err := a.st.OpenReader()
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		row, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		a.allRows[row.RowID] = row
	}

	a.schema = m.Schema
	a.snapshots = m.Snapshots
	a.nextRowID = m.NextRowID
	a.nextColID = m.NextColID
	a.nextVersion = m.NextVersion
	a.primaryKey = m.PrimaryKey

	cur := a.nextVersion - 1
	a.liveSorted = a.rebuildLiveSorted(cur)
	return nil
}

// rebuildLiveSorted scans allRows for the rows alive at v and returns them
// sorted ascending by key. Used when reopening an archive from a store; the
// steady-state path maintains liveSorted incrementally instead.
func (a *Archive) rebuildLiveSorted(v int64) []*archiverow.Row {
	if v < 0 {
		return nil
	}
	var live []*archiverow.Row
	for _, row := range a.allRows {
		if row.Alive(v) {
			live = append(live, row)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		ki, _ := live[i].KeyAt(v)
		kj, _ := live[j].KeyAt(v)
		return value.Less(ki, kj)
	})
	return live
}

// CurrentVersion returns the most recently committed version, or -1 if no
// commit has happened yet.
func (a *Archive) CurrentVersion() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextVersion - 1
}

// Snapshots returns the committed-version descriptors in commit order
// (spec §6, "snapshots()").
func (a *Archive) Snapshots() []archiverow.Descriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshots.All()
}

// Close releases the underlying Store.
func (a *Archive) Close() error {
	return a.st.Close()
}

// persist writes the full row set and metadata to the Store, relying on the
// Store's own stage-then-swap discipline for atomicity (spec §5).
func (a *Archive) persist(rows map[int64]*archiverow.Row, meta *store.Metadata) error {
	w, err := a.st.OpenWriter()
	if err != nil {
		return err
	}
	for _, id := range sortedRowIDs(rows) {
		if err := w.Write(rows[id]); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return a.st.SaveMetadata(meta)
}

func cmpScalar(x, y value.Scalar) int {
	if value.Equal(x, y) {
		return 0
	}
	if value.Less(x, y) {
		return -1
	}
	return 1
}
