// Package books implements the catalog's book lifecycle: create, read,
// update, delete, the best-rated listing, and cover image handling.
package books

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/storage"
	"github.com/shelfworks/catalog-service/internal/cache"
	"github.com/shelfworks/catalog-service/internal/errors"
	"github.com/shelfworks/catalog-service/internal/objectstore"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// bestRatedLimit is the size of the best-rated leaderboard.
const bestRatedLimit = 3

// bestRatedCacheKey holds the cached leaderboard payload.
const bestRatedCacheKey = "books:bestrated"

// Input carries the caller-supplied book fields for create and update.
type Input struct {
	Title  string
	Author string
	Year   int
	Genre  string
}

// ImageUpload is a cover image received with a create or update.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service provides book operations on top of the store and object storage.
type Service struct {
	books   storage.BookStore
	objects objectstore.Store
	cache   *cache.Cache
	log     *logger.Logger
}

// New creates the books service. cache may be nil.
func New(books storage.BookStore, objects objectstore.Store, c *cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("books")
	}
	return &Service{books: books, objects: objects, cache: c, log: log}
}

// Create stores a new book owned by ownerID. When an image is supplied it
// is uploaded first under a fresh key; the book is only written once the
// upload succeeded.
func (s *Service) Create(ctx context.Context, ownerID string, in Input, image *ImageUpload) (book.Book, error) {
	if err := validateInput(in); err != nil {
		return book.Book{}, err
	}

	imageRef := ""
	if image != nil {
		ref, err := s.storeImage(ctx, image)
		if err != nil {
			return book.Book{}, err
		}
		imageRef = ref
	}

	created, err := s.books.CreateBook(ctx, book.Book{
		OwnerUserID: ownerID,
		Title:       in.Title,
		Author:      in.Author,
		Year:        in.Year,
		Genre:       in.Genre,
		ImageRef:    imageRef,
	})
	if err != nil {
		return book.Book{}, errors.Internal("could not create book", err)
	}

	s.cache.Invalidate(ctx, bestRatedCacheKey)
	s.log.WithField("book_id", created.ID).
		WithField("owner_id", ownerID).
		Info("Book created")
	return created, nil
}

// Get returns one book by id.
func (s *Service) Get(ctx context.Context, id string) (book.Book, error) {
	b, err := s.books.GetBook(ctx, id)
	if err != nil {
		return book.Book{}, mapStoreErr(err)
	}
	return b, nil
}

// List returns all books in creation order.
func (s *Service) List(ctx context.Context) ([]book.Book, error) {
	list, err := s.books.ListBooks(ctx)
	if err != nil {
		return nil, errors.Internal("could not list books", err)
	}
	return list, nil
}

// BestRated returns the top books by average rating, served from cache when
// a fresh entry exists.
func (s *Service) BestRated(ctx context.Context) ([]book.Book, error) {
	var cached []book.Book
	if s.cache.Get(ctx, bestRatedCacheKey, &cached) {
		return cached, nil
	}

	list, err := s.books.ListBestRated(ctx, bestRatedLimit)
	if err != nil {
		return nil, errors.Internal("could not list best rated books", err)
	}

	s.cache.Set(ctx, bestRatedCacheKey, list)
	return list, nil
}

// Update modifies a book's descriptive fields, replacing the cover image
// when a new one is supplied. Only the owner may update; requests from
// anyone else report the book as not found.
func (s *Service) Update(ctx context.Context, actorID, bookID string, in Input, image *ImageUpload) (book.Book, error) {
	if err := validateInput(in); err != nil {
		return book.Book{}, err
	}

	current, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return book.Book{}, mapStoreErr(err)
	}
	if current.OwnerUserID != actorID {
		return book.Book{}, errors.NotFound("book not found")
	}

	imageRef := current.ImageRef
	if image != nil {
		ref, err := s.storeImage(ctx, image)
		if err != nil {
			return book.Book{}, err
		}
		imageRef = ref
	}

	updated, err := s.books.UpdateBook(ctx, book.Book{
		ID:       bookID,
		Title:    in.Title,
		Author:   in.Author,
		Year:     in.Year,
		Genre:    in.Genre,
		ImageRef: imageRef,
	})
	if err != nil {
		return book.Book{}, mapStoreErr(err)
	}

	// Remove the replaced image only after the row points at the new one.
	if image != nil && current.ImageRef != "" && current.ImageRef != imageRef {
		if err := s.objects.Delete(ctx, current.ImageRef); err != nil {
			s.log.WithError(err).WithField("key", current.ImageRef).Warn("Could not delete replaced image")
		}
	}

	s.cache.Invalidate(ctx, bestRatedCacheKey)
	s.log.WithField("book_id", bookID).Info("Book updated")
	return updated, nil
}

// Delete removes a book and its cover image. Only the owner may delete;
// requests from anyone else report the book as not found.
func (s *Service) Delete(ctx context.Context, actorID, bookID string) error {
	current, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return mapStoreErr(err)
	}
	if current.OwnerUserID != actorID {
		return errors.NotFound("book not found")
	}

	if err := s.books.DeleteBook(ctx, bookID); err != nil {
		return mapStoreErr(err)
	}

	if current.ImageRef != "" {
		if err := s.objects.Delete(ctx, current.ImageRef); err != nil {
			s.log.WithError(err).WithField("key", current.ImageRef).Warn("Could not delete book image")
		}
	}

	s.cache.Invalidate(ctx, bestRatedCacheKey)
	s.log.WithField("book_id", bookID).Info("Book deleted")
	return nil
}

// ImageURL resolves a stored image reference to a presigned download URL.
// Books without an image yield an empty URL.
func (s *Service) ImageURL(ref string) string {
	if ref == "" {
		return ""
	}
	url, err := s.objects.PresignGet(ref)
	if err != nil {
		s.log.WithError(err).WithField("key", ref).Warn("Could not presign image URL")
		return ""
	}
	return url
}

func (s *Service) storeImage(ctx context.Context, image *ImageUpload) (string, error) {
	if len(image.Data) == 0 {
		return "", errors.Validation("uploaded image is empty")
	}

	ext := strings.ToLower(path.Ext(image.Filename))
	key := fmt.Sprintf("covers/%s%s", uuid.NewString(), ext)

	if err := s.objects.Put(ctx, key, image.ContentType, image.Data); err != nil {
		return "", errors.Internal("could not store image", err)
	}
	return key, nil
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.Validation("title is required")
	}
	if strings.TrimSpace(in.Author) == "" {
		return errors.Validation("author is required")
	}
	return nil
}

func mapStoreErr(err error) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("book not found")
	}
	return errors.Internal("storage failure", err)
}
