package store

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/schema"
	"github.com/kasuganosora/historystore/pkg/value"
)

// rowWire is one record of rows.dat (spec §6): fields r/t/k/p/c.
type rowWire struct {
	R int64                      `json:"r"`
	T timestampWire              `json:"t"`
	K json.RawMessage            `json:"k,omitempty"`
	P json.RawMessage            `json:"p"`
	C map[string]json.RawMessage `json:"c,omitempty"`
}

// EncodeRow serializes an ArchiveRow to one rows.dat record.
func EncodeRow(row *archiverow.Row) ([]byte, error) {
	ts := row.Timestamp
	w := rowWire{R: row.RowID, T: encodeTimestamp(ts)}

	if len(row.Key.Versions()) > 0 {
		kRaw, err := encodeMVV(row.Key, ts)
		if err != nil {
			return nil, err
		}
		w.K = kRaw
	}

	pRaw, err := encodeMVV(row.Position, ts)
	if err != nil {
		return nil, err
	}
	w.P = pRaw

	if len(row.Cells) > 0 {
		w.C = make(map[string]json.RawMessage, len(row.Cells))
		for colID, mv := range row.Cells {
			cRaw, err := encodeMVV(mv, ts)
			if err != nil {
				return nil, err
			}
			w.C[fmt.Sprintf("%d", colID)] = cRaw
		}
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal row record: %v: %w", err, ErrSerialization)
	}
	return data, nil
}

// DecodeRow deserializes one rows.dat record into an ArchiveRow.
func DecodeRow(data []byte) (*archiverow.Row, error) {
	var w rowWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal row record: %v: %w", err, ErrSerialization)
	}
	ts := decodeTimestamp(w.T)

	row := &archiverow.Row{RowID: w.R, Timestamp: ts}

	if len(w.K) > 0 {
		key, err := decodeMVV(w.K, ts)
		if err != nil {
			return nil, err
		}
		row.Key = key
	}

	pos, err := decodeMVV(w.P, ts)
	if err != nil {
		return nil, err
	}
	row.Position = pos

	if len(w.C) > 0 {
		row.Cells = make(map[int64]value.MultiVersionValue, len(w.C))
		for colStr, raw := range w.C {
			var colID int64
			if _, err := fmt.Sscanf(colStr, "%d", &colID); err != nil {
				return nil, fmt.Errorf("decode row: bad column id %q: %w", colStr, ErrSerialization)
			}
			mv, err := decodeMVV(raw, ts)
			if err != nil {
				return nil, err
			}
			row.Cells[colID] = mv
		}
	} else {
		row.Cells = map[int64]value.MultiVersionValue{}
	}
	return row, nil
}

// columnWire is one schema record of metadata.dat: {c, n, p, t}.
type columnWire struct {
	C int64           `json:"c"`
	N json.RawMessage `json:"n"`
	P json.RawMessage `json:"p"`
	T timestampWire   `json:"t"`
}

type descriptorWire struct {
	Version     int64  `json:"version"`
	CommittedAt int64  `json:"committed_at"`
	Description string `json:"description,omitempty"`
	Operation   string `json:"operation,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
}

type metadataWire struct {
	Schema        []columnWire     `json:"schema"`
	Snapshots     []descriptorWire `json:"snapshots"`
	NextRowID     int64            `json:"next_row_id"`
	NextColID     int64            `json:"next_col_id"`
	NextVersion   int64            `json:"next_version"`
	PrimaryKey    []string         `json:"primary_key,omitempty"`
	SerializerID  string           `json:"serializer_id"`
	EncoderConfig map[string]any   `json:"encoder_config,omitempty"`
}

// SerializerID identifies the wire format encoded by this package, recorded
// in metadata.dat so a future incompatible revision can be detected on load.
const SerializerID = "historystore-json-v1"

// EncodeMetadata serializes archive metadata to metadata.dat bytes.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	w := metadataWire{
		NextRowID:    m.NextRowID,
		NextColID:    m.NextColID,
		NextVersion:  m.NextVersion,
		PrimaryKey:   m.PrimaryKey,
		SerializerID: SerializerID,
	}
	for _, c := range m.Schema.Columns {
		nRaw, err := encodeMVV(c.Name, c.Timestamp)
		if err != nil {
			return nil, err
		}
		pRaw, err := encodeMVV(c.Position, c.Timestamp)
		if err != nil {
			return nil, err
		}
		w.Schema = append(w.Schema, columnWire{
			C: c.ColID, N: nRaw, P: pRaw, T: encodeTimestamp(c.Timestamp),
		})
	}
	for _, d := range m.Snapshots.All() {
		w.Snapshots = append(w.Snapshots, descriptorWire{
			Version: d.Version, CommittedAt: d.CommittedAt,
			Description: d.Description, Operation: d.Operation, SourceID: d.SourceID,
		})
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %v: %w", err, ErrSerialization)
	}
	return data, nil
}

// DecodeMetadata deserializes metadata.dat bytes.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var w metadataWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %v: %w", err, ErrSerialization)
	}
	if w.SerializerID != "" && w.SerializerID != SerializerID {
		return nil, fmt.Errorf("unsupported serializer id %q: %w", w.SerializerID, ErrSerialization)
	}

	sc := schema.NewSchema()
	sc.NextColID = w.NextColID
	for _, cw := range w.Schema {
		ts := decodeTimestamp(cw.T)
		name, err := decodeMVV(cw.N, ts)
		if err != nil {
			return nil, err
		}
		pos, err := decodeMVV(cw.P, ts)
		if err != nil {
			return nil, err
		}
		sc.Columns = append(sc.Columns, &schema.ArchiveColumn{
			ColID: cw.C, Name: name, Position: pos, Timestamp: ts,
		})
	}

	m := &Metadata{
		Schema:      sc,
		NextRowID:   w.NextRowID,
		NextColID:   w.NextColID,
		NextVersion: w.NextVersion,
		PrimaryKey:  w.PrimaryKey,
	}
	for _, dw := range w.Snapshots {
		m.Snapshots.Append(archiverow.Descriptor{
			Version: dw.Version, CommittedAt: dw.CommittedAt,
			Description: dw.Description, Operation: dw.Operation, SourceID: dw.SourceID,
		})
	}
	return m, nil
}
