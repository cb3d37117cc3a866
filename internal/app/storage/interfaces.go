// Package storage defines the persistence interfaces for the catalog and
// the sentinel errors stores translate driver failures into.
package storage

import (
	"context"
	"errors"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/domain/user"
)

var (
	// ErrNotFound reports an absent record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail reports a signup against an already registered email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrConflict reports an optimistic-concurrency conflict that persisted
	// past the retry budget.
	ErrConflict = errors.New("concurrent update conflict")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// BookStore persists books and their rating lists.
//
// Ratings and the rolled-up average are mutated exclusively through
// MergeRating, which must apply the merge atomically with respect to other
// concurrent MergeRating calls for the same book. UpdateBook only touches
// descriptive fields and the image reference.
type BookStore interface {
	CreateBook(ctx context.Context, b book.Book) (book.Book, error)
	UpdateBook(ctx context.Context, b book.Book) (book.Book, error)
	GetBook(ctx context.Context, id string) (book.Book, error)
	ListBooks(ctx context.Context) ([]book.Book, error)
	ListBestRated(ctx context.Context, limit int) ([]book.Book, error)
	DeleteBook(ctx context.Context, id string) error

	MergeRating(ctx context.Context, bookID, raterID string, grade float64) (book.Book, error)
}
