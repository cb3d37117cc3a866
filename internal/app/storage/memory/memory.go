// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces, used for tests and DSN-less local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/domain/user"
	"github.com/shelfworks/catalog-service/internal/app/storage"
)

// Store keeps all records in maps guarded by a single mutex. The mutex is
// also what makes MergeRating atomic here.
type Store struct {
	mu    sync.RWMutex
	users map[string]user.User
	books map[string]book.Book
}

var (
	_ storage.UserStore = (*Store)(nil)
	_ storage.BookStore = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users: make(map[string]user.User),
		books: make(map[string]book.Book),
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, storage.ErrDuplicateEmail
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

// BookStore implementation ----------------------------------------------------

func (s *Store) CreateBook(_ context.Context, b book.Book) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Ratings = cloneRatings(b.Ratings)
	b.AverageRating = book.Mean(b.Ratings)

	s.books[b.ID] = b
	return cloneBook(b), nil
}

func (s *Store) UpdateBook(_ context.Context, b book.Book) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.books[b.ID]
	if !ok {
		return book.Book{}, storage.ErrNotFound
	}

	original.Title = b.Title
	original.Author = b.Author
	original.Year = b.Year
	original.Genre = b.Genre
	original.ImageRef = b.ImageRef
	original.UpdatedAt = time.Now().UTC()

	s.books[original.ID] = original
	return cloneBook(original), nil
}

func (s *Store) GetBook(_ context.Context, id string) (book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return book.Book{}, storage.ErrNotFound
	}
	return cloneBook(b), nil
}

func (s *Store) ListBooks(_ context.Context) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]book.Book, 0, len(s.books))
	for _, b := range s.books {
		result = append(result, cloneBook(b))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ListBestRated(_ context.Context, limit int) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]book.Book, 0, len(s.books))
	for _, b := range s.books {
		result = append(result, cloneBook(b))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AverageRating > result[j].AverageRating
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *Store) MergeRating(_ context.Context, bookID, raterID string, grade float64) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[bookID]
	if !ok {
		return book.Book{}, storage.ErrNotFound
	}

	b.Ratings = book.MergeRating(b.Ratings, raterID, grade)
	b.AverageRating = book.Mean(b.Ratings)
	b.UpdatedAt = time.Now().UTC()

	s.books[bookID] = b
	return cloneBook(b), nil
}

// Helpers ---------------------------------------------------------------------

func cloneRatings(ratings []book.Rating) []book.Rating {
	if len(ratings) == 0 {
		return nil
	}
	dst := make([]book.Rating, len(ratings))
	copy(dst, ratings)
	return dst
}

func cloneBook(b book.Book) book.Book {
	b.Ratings = cloneRatings(b.Ratings)
	return b
}
