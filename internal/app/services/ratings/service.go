// Package ratings implements rating submission: the atomic merge of a
// rater's entry into a book's rating list and the recomputed average.
package ratings

import (
	"context"
	stderrors "errors"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/storage"
	"github.com/shelfworks/catalog-service/internal/cache"
	"github.com/shelfworks/catalog-service/internal/errors"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// bestRatedCacheKey mirrors the books service key; a new rating can change
// the leaderboard.
const bestRatedCacheKey = "books:bestrated"

// Service validates and applies rating submissions.
type Service struct {
	books storage.BookStore
	users storage.UserStore
	cache *cache.Cache
	log   *logger.Logger
}

// New creates the ratings service. cache may be nil.
func New(books storage.BookStore, users storage.UserStore, c *cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ratings")
	}
	return &Service{books: books, users: users, cache: c, log: log}
}

// Submit records raterID's grade for a book, replacing any earlier grade
// from the same rater, and returns the book with its recomputed average.
// The rater must exist; that check runs before any write to the book.
func (s *Service) Submit(ctx context.Context, bookID, raterID string, grade float64) (book.Book, error) {
	if !book.GradeInRange(grade) {
		return book.Book{}, errors.Validation("rating must be between 0 and 5")
	}
	if raterID == "" {
		return book.Book{}, errors.Validation("a rater user id is required")
	}

	if _, err := s.users.GetUser(ctx, raterID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return book.Book{}, errors.Validation("unknown rating user")
		}
		return book.Book{}, errors.Internal("could not load rating user", err)
	}

	updated, err := s.books.MergeRating(ctx, bookID, raterID, grade)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return book.Book{}, errors.NotFound("book not found")
		}
		return book.Book{}, errors.Internal("could not record rating", err)
	}

	s.cache.Invalidate(ctx, bestRatedCacheKey)
	s.log.WithField("book_id", bookID).
		WithField("rater_id", raterID).
		WithField("average", updated.AverageRating).
		Info("Rating recorded")
	return updated, nil
}
