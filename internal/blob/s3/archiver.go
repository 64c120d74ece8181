package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
)

// SettledWagerSource provides the archiver's read access to settled wagers.
// The Postgres WagerStore satisfies it.
type SettledWagerSource interface {
	ListSettledBefore(ctx context.Context, before time.Time) ([]domain.Wager, error)
}

// Archiver exports settled wagers and settlement reports to cold storage as
// JSONL files. Deletion of archived rows from the primary store is a
// separate, explicit step taken after the archive has been verified.
type Archiver struct {
	writer domain.BlobWriter
	wagers SettledWagerSource
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, wagers SettledWagerSource, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		wagers: wagers,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSettledWagers queries wagers settled before the cutoff, serializes
// them to JSONL, and uploads the file to archive/wagers/YYYY-MM.jsonl. It
// returns the number of archived records.
func (a *Archiver) ArchiveSettledWagers(ctx context.Context, before time.Time) (int64, error) {
	wagers, err := a.wagers.ListSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive wagers query: %w", err)
	}
	if len(wagers) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(wagers)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive wagers marshal: %w", err)
	}

	path := archivePath("wagers", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive wagers upload: %w", err)
	}

	count := int64(len(wagers))
	a.logger.Info("archived settled wagers",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before),
	)
	return count, nil
}

// ArchiveReport uploads one settlement report to
// archive/reports/{marketID}/YYYY-MM-DD.json.
func (a *Archiver) ArchiveReport(ctx context.Context, report domain.SettlementReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("s3blob: marshal report for %s: %w", report.MarketID, err)
	}

	path := fmt.Sprintf("archive/reports/%s/%s.json",
		report.MarketID, report.Result.DeclaredAt.Format("2006-01-02"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: upload report for %s: %w", report.MarketID, err)
	}

	a.logger.Info("archived settlement report",
		slog.String("path", path),
		slog.String("market_id", report.MarketID),
	)
	return nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
