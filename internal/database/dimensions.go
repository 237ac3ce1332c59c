package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"media-json/internal/media"
	"media-json/internal/metrics"
)

// LoadDimensions returns the stored dimensions for key and marks the entry
// as seen.
func (d *Database) LoadDimensions(ctx context.Context, key media.CacheKey) (media.Dimensions, bool, error) {
	start := time.Now()

	var dims media.Dimensions
	err := d.db.QueryRowContext(ctx, `
		UPDATE dimensions SET seen_at = ?
		WHERE path = ? AND size = ? AND mod_time = ?
		RETURNING width, height, format
	`, time.Now().UnixNano(), key.Path, key.Size, key.ModTime).Scan(&dims.Width, &dims.Height, &dims.Format)

	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("load", start, nil)
		return media.Dimensions{}, false, nil
	}
	recordQuery("load", start, err)
	if err != nil {
		return media.Dimensions{}, false, err
	}
	return dims, true, nil
}

// SaveDimensions stores dims for key, replacing any previous entry.
func (d *Database) SaveDimensions(ctx context.Context, key media.CacheKey, dims media.Dimensions) error {
	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO dimensions (path, size, mod_time, width, height, format, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, size, mod_time) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			format = excluded.format,
			seen_at = excluded.seen_at
	`, key.Path, key.Size, key.ModTime, dims.Width, dims.Height, dims.Format, time.Now().UnixNano())
	recordQuery("save", start, err)
	return err
}

// PruneUnseen deletes entries not loaded or saved since cutoff: images that
// were deleted or replaced by a newer version. It returns the number of rows
// removed.
func (d *Database) PruneUnseen(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	result, err := d.db.ExecContext(ctx, "DELETE FROM dimensions WHERE seen_at < ?", cutoff.UnixNano())
	recordQuery("prune", start, err)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count returns the number of stored entries and updates the entries gauge.
func (d *Database) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dimensions").Scan(&n)
	recordQuery("count", start, err)
	if err != nil {
		return 0, err
	}
	metrics.DBEntries.Set(float64(n))
	return n, nil
}
