package lake

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// PartitionFile records one data file holding a single date partition.
type PartitionFile struct {
	// Key is the object key of the parquet data file.
	Key string `json:"key"`
	// Checksum is the sha256 of the file contents, prefixed "sha256:".
	Checksum string `json:"checksum"`
	// RowCount is the number of rows in the file.
	RowCount int64 `json:"row_count"`
	// ByteSize is the size of the file in bytes.
	ByteSize int64 `json:"byte_size"`
	// Columns is the column set the file was written with. After
	// additive schema evolution this can be a subset of the snapshot
	// schema; columns the file predates read back as NULL.
	Columns []string `json:"columns,omitempty"`
}

// Snapshot is the metadata of one committed table version. It maps
// every logical date to the data file holding that partition. Writers
// build a new snapshot from the current one, swap a single partition,
// and commit; readers always see a complete snapshot.
type Snapshot struct {
	Table       string                   `json:"table"`
	Version     int64                    `json:"version"`
	SnapshotID  string                   `json:"snapshot_id"`
	Schema      rows.Schema              `json:"schema"`
	Partitions  map[string]PartitionFile `json:"partitions"`
	CommittedAt time.Time                `json:"committed_at"`
	Producer    string                   `json:"producer,omitempty"`
}

// Clone returns a deep copy safe to mutate into the next version.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Schema = rows.Schema{Columns: append([]rows.Column(nil), s.Schema.Columns...)}
	out.Partitions = make(map[string]PartitionFile, len(s.Partitions))
	for k, v := range s.Partitions {
		out.Partitions[k] = v
	}
	return &out
}

// TotalRows sums the row counts of all partitions.
func (s *Snapshot) TotalRows() int64 {
	var n int64
	for _, p := range s.Partitions {
		n += p.RowCount
	}
	return n
}

// Marshal serializes the snapshot metadata as indented JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot metadata: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot parses snapshot metadata JSON.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot metadata: %w", err)
	}
	if s.Partitions == nil {
		s.Partitions = make(map[string]PartitionFile)
	}
	return &s, nil
}

// ChecksumBytes computes the prefixed sha256 checksum of data.
func ChecksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// VerifyChecksum checks data against a prefixed checksum string.
func VerifyChecksum(data []byte, checksum string) error {
	got := ChecksumBytes(data)
	if got != checksum {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, checksum)
	}
	return nil
}
