// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"codescanner/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	RecordResult(ctx context.Context, rec *model.ScanRecord) error
	ListRecent(ctx context.Context, limit int) ([]model.ScanRecord, error)
	CountResults(ctx context.Context) (succeeded, failed int, err error)

	CreateFilter(ctx context.Context, f *model.Filter) error
	ListFilters(ctx context.Context, chatID int64) ([]model.Filter, error)
	GetFilter(ctx context.Context, id int64) (*model.Filter, error)
	DeleteFilter(ctx context.Context, id int64) error

	Close() error
}
