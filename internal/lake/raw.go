package lake

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// ArchiveRaw stores the raw upstream payload for one date, compressed
// with zstd, alongside the table's parquet data. The archive is an
// audit trail only; nothing in the pipeline reads it back.
func (s *Store) ArchiveRaw(ctx context.Context, table string, date rows.LogicalDate, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(payload, nil)
	enc.Close()

	key := fmt.Sprintf("%s/_raw/%s/date_id=%s/payload.json.zst", s.namespace, table, date.String())
	if err := s.writeObject(ctx, key, compressed, "application/zstd"); err != nil {
		return s.classifyBlobErr(table, fmt.Errorf("archiving raw payload %s: %w", key, err))
	}

	s.log.Debug("raw payload archived",
		"table", table,
		"date", date.String(),
		"bytes_raw", len(payload),
		"bytes_compressed", len(compressed),
	)
	return nil
}

// ReadRaw loads and decompresses an archived raw payload. It returns
// nil when no payload was archived for the date.
func (s *Store) ReadRaw(ctx context.Context, table string, date rows.LogicalDate) ([]byte, error) {
	key := fmt.Sprintf("%s/_raw/%s/date_id=%s/payload.json.zst", s.namespace, table, date.String())
	exists, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return nil, s.classifyBlobErr(table, fmt.Errorf("checking raw payload %s: %w", key, err))
	}
	if !exists {
		return nil, nil
	}

	compressed, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, s.classifyBlobErr(table, fmt.Errorf("reading raw payload %s: %w", key, err))
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	payload, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing raw payload %s: %w", key, err)
	}
	return payload, nil
}
