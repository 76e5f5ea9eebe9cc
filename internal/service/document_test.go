package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"docintake/internal/model"
	"docintake/internal/policy"
	repoMocks "docintake/internal/repository/mocks"
	"docintake/internal/storage"
	storeMocks "docintake/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testPolicy() policy.Policy {
	return policy.Policy{
		MaxFileSizeMB:       20,
		AllowedContentTypes: []string{"application/pdf"},
	}
}

func pdfItem(name string, size int64) BatchItem {
	return BatchItem{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        size,
		Content:     strings.NewReader("%PDF-"),
	}
}

func TestDocumentService_UploadBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch rejected before storage", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		res, err := svc.UploadBatch(ctx, nil)

		assert.ErrorIs(t, err, ErrEmptyBatch)
		assert.Nil(t, res)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("single file happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		item := pdfItem("a.pdf", 5*1024*1024)
		mStore.On("Put", ctx, item.Content, "a.pdf", item.Size).
			Return("1700_a.pdf", nil)
		mRepo.On("Insert", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.OriginalFilename == "a.pdf" &&
				doc.StoredPath == "1700_a.pdf" &&
				!doc.UploadedAt.IsZero()
		})).Return(&model.Document{ID: 1, OriginalFilename: "a.pdf", StoredPath: "1700_a.pdf"}, nil)

		res, err := svc.UploadBatch(ctx, []BatchItem{item})

		require.NoError(t, err)
		assert.Equal(t, []int64{1}, res.UploadedIDs)
		assert.Equal(t, 1, res.Count)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("disallowed type leaves zero side effects", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		item := BatchItem{Filename: "pic.png", ContentType: "image/png", Size: 10, Content: strings.NewReader("png")}
		res, err := svc.UploadBatch(ctx, []BatchItem{item})

		var rej *policy.RejectionError
		require.ErrorAs(t, err, &rej)
		assert.Contains(t, rej.Reason, `"pic.png"`)
		assert.Contains(t, rej.Reason, `"image/png"`)
		assert.Nil(t, res)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("oversized file leaves zero side effects", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		res, err := svc.UploadBatch(ctx, []BatchItem{pdfItem("big.pdf", 25*1024*1024)})

		var rej *policy.RejectionError
		require.ErrorAs(t, err, &rej)
		assert.Contains(t, rej.Reason, "25.00 MB")
		assert.Nil(t, res)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("batch aborts on first rejection, earlier files stay committed", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		good := pdfItem("a.pdf", 5*1024*1024)
		bad := pdfItem("b.pdf", 25*1024*1024)

		mStore.On("Put", ctx, good.Content, "a.pdf", good.Size).
			Return("1700_a.pdf", nil).Once()
		mRepo.On("Insert", ctx, mock.Anything).
			Return(&model.Document{ID: 1}, nil).Once()

		res, err := svc.UploadBatch(ctx, []BatchItem{good, bad})

		var rej *policy.RejectionError
		require.ErrorAs(t, err, &rej)
		assert.Contains(t, rej.Reason, `"b.pdf"`)
		assert.Contains(t, rej.Reason, "too large (25.00 MB)")
		assert.Nil(t, res)

		// a.pdf went through the full pipeline exactly once; b.pdf never
		// touched storage. No rollback of a.pdf happens.
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
		mStore.AssertNumberOfCalls(t, "Put", 1)
		mRepo.AssertNumberOfCalls(t, "Insert", 1)
	})

	t.Run("storage error", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		item := pdfItem("a.pdf", 100)
		mStore.On("Put", ctx, item.Content, "a.pdf", item.Size).
			Return("", errors.New("disk full"))

		res, err := svc.UploadBatch(ctx, []BatchItem{item})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), `store "a.pdf": disk full`)
		assert.Nil(t, res)
		mRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("repository error after blob write", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		item := pdfItem("a.pdf", 100)
		mStore.On("Put", ctx, item.Content, "a.pdf", item.Size).
			Return("1700_a.pdf", nil)
		mRepo.On("Insert", ctx, mock.Anything).
			Return(nil, errors.New("db fail"))

		res, err := svc.UploadBatch(ctx, []BatchItem{item})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), `record "a.pdf": db fail`)
		assert.Nil(t, res)
	})

	t.Run("multi file ids keep caller order", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		a := pdfItem("a.pdf", 10)
		b := pdfItem("b.pdf", 10)
		mStore.On("Put", ctx, a.Content, "a.pdf", a.Size).Return("1_a.pdf", nil)
		mStore.On("Put", ctx, b.Content, "b.pdf", b.Size).Return("2_b.pdf", nil)
		mRepo.On("Insert", ctx, mock.MatchedBy(func(d *model.Document) bool { return d.StoredPath == "1_a.pdf" })).
			Return(&model.Document{ID: 1}, nil)
		mRepo.On("Insert", ctx, mock.MatchedBy(func(d *model.Document) bool { return d.StoredPath == "2_b.pdf" })).
			Return(&model.Document{ID: 2}, nil)

		res, err := svc.UploadBatch(ctx, []BatchItem{a, b})

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, res.UploadedIDs)
		assert.Equal(t, 2, res.Count)
	})
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         int64
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, int64(1)).Return(&model.Document{ID: 1}, nil)
			},
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   999999,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, int64(999999)).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   2,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, int64(2)).Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, testPolicy())

			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				if errors.Is(tt.wantErr, ErrNotFound) {
					assert.ErrorIs(t, err, ErrNotFound)
				} else {
					assert.Error(t, err)
				}
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, doc)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns repository order", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo, testPolicy())

		mRepo.On("List", ctx).Return([]model.Document{{ID: 1}, {ID: 2}}, nil)

		docs, err := svc.List(ctx)

		assert.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("empty store is not an error", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo, testPolicy())

		mRepo.On("List", ctx).Return([]model.Document{}, nil)

		docs, err := svc.List(ctx)

		assert.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Len(t, docs, 0)
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		mRepo.On("FindByID", ctx, int64(1)).
			Return(&model.Document{ID: 1, OriginalFilename: "report.pdf", StoredPath: "1700_report.pdf"}, nil)
		mStore.On("Get", ctx, "1700_report.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-content")), nil)

		rc, filename, err := svc.Download(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, "report.pdf", filename)
		got, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "%PDF-content", string(got))
	})

	t.Run("unknown id", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		mRepo.On("FindByID", ctx, int64(999999)).Return(nil, sql.ErrNoRows)

		rc, _, err := svc.Download(ctx, 999999)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, rc)
		mStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("metadata exists but bytes missing", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		mRepo.On("FindByID", ctx, int64(1)).
			Return(&model.Document{ID: 1, OriginalFilename: "a.pdf", StoredPath: "1700_a.pdf"}, nil)
		mStore.On("Get", ctx, "1700_a.pdf").Return(nil, storage.ErrBlobNotFound)

		rc, _, err := svc.Download(ctx, 1)

		assert.ErrorIs(t, err, ErrBlobMissing)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Nil(t, rc)
	})

	t.Run("storage fault propagates", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, testPolicy())

		mRepo.On("FindByID", ctx, int64(1)).
			Return(&model.Document{ID: 1, StoredPath: "1700_a.pdf"}, nil)
		mStore.On("Get", ctx, "1700_a.pdf").Return(nil, errors.New("io fault"))

		rc, _, err := svc.Download(ctx, 1)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrBlobMissing)
		assert.Nil(t, rc)
	})
}
