package repository

import (
	"context"

	"docintake/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

// DocumentRepository defines data access for document metadata using SQL
// queries only. No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Insert stores a new document record inside its own unit of work
	// (transaction acquired, committed, released on every exit path) and
	// returns the stored document with its repository-assigned id.
	Insert(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its id.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// List returns all documents in insertion order.
	List(ctx context.Context) ([]model.Document, error)
}
