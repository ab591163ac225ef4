package lake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/lake/catalog"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/metrics"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Store reads and writes snapshot-versioned tables in object storage.
//
// Data and metadata files are immutable once written. A partition
// replacement writes a fresh data file and a fresh snapshot metadata
// file under unique keys, then commits the new version to the catalog.
// The catalog insert is the only mutation readers can observe, so they
// see either the old snapshot or the new one, never a mix.
type Store struct {
	bucket    *blob.Bucket
	namespace string
	catalog   catalog.Catalog
	producer  string
	log       *slog.Logger
}

// NewStore creates a Store over an open bucket and catalog.
func NewStore(bucket *blob.Bucket, namespace string, cat catalog.Catalog, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		bucket:    bucket,
		namespace: namespace,
		catalog:   cat,
		producer:  "weather-pipeline",
		log:       logger.With("component", "lake"),
	}
}

func (s *Store) tableRef(table string) catalog.TableRef {
	return catalog.TableRef{Namespace: s.namespace, Table: table}
}

func (s *Store) dataKey(table, date, snapshotID string) string {
	return fmt.Sprintf("%s/%s/date_id=%s/part-%s.parquet", s.namespace, table, date, snapshotID)
}

func (s *Store) metadataKey(table string, version int64) string {
	return fmt.Sprintf("%s/%s/_snapshots/v%d.metadata.json", s.namespace, table, version)
}

// CurrentSnapshot loads the latest committed snapshot of a table, or
// nil if the table has never been committed.
func (s *Store) CurrentSnapshot(ctx context.Context, table string) (*Snapshot, error) {
	entry, err := s.catalog.Current(ctx, s.tableRef(table))
	if err != nil {
		return nil, refresh.Transient(fmt.Errorf("loading catalog entry for %s: %w", table, err))
	}
	if entry == nil {
		return nil, nil
	}

	data, err := s.bucket.ReadAll(ctx, entry.MetadataKey)
	if err != nil {
		return nil, s.classifyBlobErr(table, fmt.Errorf("reading snapshot metadata %s: %w", entry.MetadataKey, err))
	}
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		return nil, refresh.Fatal(err)
	}
	return snap, nil
}

// ReadPartition returns the rows of one date partition from the latest
// snapshot. A table or partition that does not exist yields no rows.
func (s *Store) ReadPartition(ctx context.Context, table string, date rows.LogicalDate) ([]rows.Row, error) {
	snap, err := s.CurrentSnapshot(ctx, table)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	pf, ok := snap.Partitions[date.String()]
	if !ok {
		return nil, nil
	}

	data, err := s.bucket.ReadAll(ctx, pf.Key)
	if err != nil {
		return nil, s.classifyBlobErr(table, fmt.Errorf("reading partition file %s: %w", pf.Key, err))
	}
	if err := VerifyChecksum(data, pf.Checksum); err != nil {
		return nil, refresh.Fatal(fmt.Errorf("partition file %s: %w", pf.Key, err))
	}

	fsch, missing := fileSchema(snap.Schema, pf)
	rs, err := DecodeParquet(fsch, data)
	if err != nil {
		return nil, refresh.Fatal(fmt.Errorf("decoding partition file %s: %w", pf.Key, err))
	}
	for _, name := range missing {
		for _, r := range rs {
			r[name] = nil
		}
	}
	return rs, nil
}

// fileSchema returns the schema a partition file was written with,
// plus the snapshot columns the file predates. Files must be decoded
// with their write-time columns: decoding with the evolved schema
// would turn NULL into the column's zero value.
func fileSchema(snapSchema rows.Schema, pf PartitionFile) (rows.Schema, []string) {
	if len(pf.Columns) == 0 {
		return snapSchema, nil
	}
	written := make(map[string]bool, len(pf.Columns))
	for _, n := range pf.Columns {
		written[n] = true
	}
	var cols []rows.Column
	var missing []string
	for _, c := range snapSchema.Columns {
		if written[c.Name] {
			cols = append(cols, c)
		} else {
			missing = append(missing, c.Name)
		}
	}
	return rows.Schema{Columns: cols}, missing
}

// CommitPartitionReplace replaces one date partition with rs and
// commits a new snapshot version. All other partitions carry over
// unchanged. The incoming schema may add optional columns to the
// committed schema but may not drop or retype existing ones.
func (s *Store) CommitPartitionReplace(ctx context.Context, table string, sch rows.Schema, date rows.LogicalDate, rs []rows.Row) (*Snapshot, error) {
	current, err := s.CurrentSnapshot(ctx, table)
	if err != nil {
		return nil, err
	}

	var next *Snapshot
	if current == nil {
		next = &Snapshot{
			Table:      table,
			Version:    0,
			Partitions: make(map[string]PartitionFile),
			Schema:     sch,
		}
	} else {
		next = current.Clone()
		evolved, err := sch.EvolveFrom(current.Schema)
		if err != nil {
			return nil, refresh.SchemaErr(fmt.Errorf("table %s: %w", table, err))
		}
		next.Schema = evolved
	}

	for i, r := range rs {
		if err := next.Schema.Validate(r); err != nil {
			return nil, refresh.SchemaErr(fmt.Errorf("table %s row %d: %w", table, i, err))
		}
	}

	snapshotID := uuid.NewString()
	next.Version++
	next.SnapshotID = snapshotID
	next.CommittedAt = time.Now().UTC()
	next.Producer = s.producer

	data, err := EncodeParquet(next.Schema, rs)
	if err != nil {
		return nil, refresh.Fatal(fmt.Errorf("encoding partition for %s: %w", table, err))
	}

	dataKey := s.dataKey(table, date.String(), snapshotID)
	if err := s.writeObject(ctx, dataKey, data, "application/octet-stream"); err != nil {
		return nil, s.classifyBlobErr(table, fmt.Errorf("writing partition file %s: %w", dataKey, err))
	}

	next.Partitions[date.String()] = PartitionFile{
		Key:      dataKey,
		Checksum: ChecksumBytes(data),
		RowCount: int64(len(rs)),
		ByteSize: int64(len(data)),
		Columns:  next.Schema.Names(),
	}

	metaBytes, err := next.Marshal()
	if err != nil {
		s.cleanup(ctx, dataKey)
		return nil, refresh.Fatal(err)
	}
	metaKey := s.metadataKey(table, next.Version)
	if err := s.writeObject(ctx, metaKey, metaBytes, "application/json"); err != nil {
		s.cleanup(ctx, dataKey)
		return nil, s.classifyBlobErr(table, fmt.Errorf("writing snapshot metadata %s: %w", metaKey, err))
	}

	entry := catalog.Entry{
		Version:     next.Version,
		MetadataKey: metaKey,
		SnapshotID:  snapshotID,
		RowCount:    next.TotalRows(),
		CommittedAt: next.CommittedAt,
	}
	if err := s.catalog.Commit(ctx, s.tableRef(table), entry); err != nil {
		s.cleanup(ctx, dataKey, metaKey)
		if errors.Is(err, catalog.ErrVersionConflict) {
			// Another writer committed this version first. The caller
			// retries against the new current snapshot.
			return nil, refresh.Transient(fmt.Errorf("table %s version %d: %w", table, next.Version, err))
		}
		return nil, refresh.Transient(fmt.Errorf("committing table %s version %d: %w", table, next.Version, err))
	}

	s.log.Info("partition committed",
		"table", table,
		"date", date.String(),
		"version", next.Version,
		"snapshot_id", snapshotID,
		"rows", len(rs),
		"bytes", len(data),
	)
	return next, nil
}

func (s *Store) writeObject(ctx context.Context, key string, data []byte, contentType string) error {
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// cleanup deletes orphaned objects after a failed commit. Failures are
// logged and ignored; uncommitted objects are invisible to readers.
func (s *Store) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil {
			s.log.Warn("failed to clean up uncommitted object", "key", key, "error", err)
		}
	}
}

func (s *Store) classifyBlobErr(table string, err error) error {
	kind := "transient"
	classified := refresh.Transient(err)

	switch gcerrors.Code(err) {
	case gcerrors.NotFound, gcerrors.PermissionDenied, gcerrors.InvalidArgument, gcerrors.FailedPrecondition:
		kind = "fatal"
		classified = refresh.Fatal(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = "transient"
		classified = refresh.Transient(err)
	}

	if m := metrics.Get(); m != nil {
		m.IncStorageErrors(table, kind)
	}
	return classified
}
