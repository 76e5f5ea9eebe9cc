package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"docintake/internal/model"
	"docintake/internal/policy"
	"docintake/internal/repository"
	"docintake/internal/storage"
)

var (
	// ErrEmptyBatch rejects an upload request carrying no files.
	ErrEmptyBatch = errors.New("no files uploaded")
	// ErrNotFound means no document exists for the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrBlobMissing means the metadata row exists but the stored bytes
	// are gone from the blob store.
	ErrBlobMissing = errors.New("stored file not found")
)

// BatchItem is one file of an upload batch, in caller-submitted order.
type BatchItem struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadResult reports the ids assigned to a fully accepted batch.
type UploadResult struct {
	UploadedIDs []int64 `json:"uploaded_ids"`
	Count       int     `json:"count"`
}

// DocumentService defines the use cases for document intake and retrieval.
type DocumentService interface {
	// UploadBatch ingests files sequentially: validate, persist bytes,
	// record metadata — one unit of work per file. The first validation
	// failure aborts the batch; files committed before it stay committed.
	// This non-atomicity is the documented contract, not an accident.
	UploadBatch(ctx context.Context, items []BatchItem) (*UploadResult, error)

	// List returns all known documents in insertion order.
	List(ctx context.Context) ([]model.Document, error)

	// Get returns a single document by its id.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// Download resolves the document's storage reference and streams the
	// stored bytes, returning the original filename for the caller to
	// suggest as the save name.
	Download(ctx context.Context, id int64) (io.ReadCloser, string, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store  storage.BlobStore
	repo   repository.DocumentRepository
	policy policy.Policy
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.BlobStore, repo repository.DocumentRepository, pol policy.Policy) DocumentService {
	return &documentService{store: store, repo: repo, policy: pol}
}

func (s *documentService) UploadBatch(ctx context.Context, items []BatchItem) (*UploadResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		// Validation runs before any byte is committed; a rejected file
		// produces zero storage or metadata side effects.
		if err := s.policy.Validate(it.Filename, it.ContentType, it.Size); err != nil {
			return nil, err
		}

		ref, err := s.store.Put(ctx, it.Content, it.Filename, it.Size)
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", it.Filename, err)
		}

		// Store-then-record ordering: the row exists only after the blob
		// write succeeded.
		doc := &model.Document{
			OriginalFilename: it.Filename,
			StoredPath:       ref,
			UploadedAt:       time.Now().UTC(),
		}
		stored, err := s.repo.Insert(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", it.Filename, err)
		}
		ids = append(ids, stored.ID)
	}

	return &UploadResult{UploadedIDs: ids, Count: len(ids)}, nil
}

// List returns all documents in insertion order.
func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx)
}

// Get returns a document by id, translating the repository's no-rows
// condition to ErrNotFound.
func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Download reconciles metadata against actual blob presence: an unknown id
// is ErrNotFound, a known id whose bytes vanished is ErrBlobMissing.
func (s *documentService) Download(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	rc, err := s.store.Get(ctx, doc.StoredPath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, "", ErrBlobMissing
		}
		return nil, "", fmt.Errorf("read blob %q: %w", doc.StoredPath, err)
	}
	return rc, doc.OriginalFilename, nil
}
