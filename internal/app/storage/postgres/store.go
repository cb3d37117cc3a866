// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/domain/user"
	"github.com/shelfworks/catalog-service/internal/app/storage"
)

const uniqueViolation = "23505"

// mergeRetries bounds the optimistic-concurrency loop in MergeRating.
const mergeRetries = 5

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var (
	_ storage.UserStore = (*Store)(nil)
	_ storage.BookStore = (*Store)(nil)
)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ratingDoc is the jsonb wire form of a rating entry.
type ratingDoc struct {
	UserID string  `json:"userId"`
	Grade  float64 `json:"grade"`
}

type bookRow struct {
	ID            string    `db:"id"`
	OwnerUserID   string    `db:"owner_user_id"`
	Title         string    `db:"title"`
	Author        string    `db:"author"`
	ImageRef      string    `db:"image_ref"`
	Year          int       `db:"year"`
	Genre         string    `db:"genre"`
	Ratings       []byte    `db:"ratings"`
	AverageRating float64   `db:"average_rating"`
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return user.User{}, storage.ErrDuplicateEmail
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	return toUser(row), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	return toUser(row), nil
}

// --- BookStore --------------------------------------------------------------

func (s *Store) CreateBook(ctx context.Context, b book.Book) (book.Book, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.AverageRating = book.Mean(b.Ratings)

	ratingsJSON, err := marshalRatings(b.Ratings)
	if err != nil {
		return book.Book{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (id, owner_user_id, title, author, image_ref, year, genre, ratings, average_rating, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
	`, b.ID, b.OwnerUserID, b.Title, b.Author, b.ImageRef, b.Year, b.Genre, ratingsJSON, b.AverageRating, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return book.Book{}, err
	}
	return b, nil
}

// UpdateBook persists descriptive fields and the image reference. Ratings
// and the average are deliberately not written here; see MergeRating.
func (s *Store) UpdateBook(ctx context.Context, b book.Book) (book.Book, error) {
	b.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = $2, author = $3, year = $4, genre = $5, image_ref = $6, updated_at = $7
		WHERE id = $1
	`, b.ID, b.Title, b.Author, b.Year, b.Genre, b.ImageRef, b.UpdatedAt)
	if err != nil {
		return book.Book{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return book.Book{}, storage.ErrNotFound
	}
	return s.GetBook(ctx, b.ID)
}

func (s *Store) GetBook(ctx context.Context, id string) (book.Book, error) {
	var row bookRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_user_id, title, author, image_ref, year, genre, ratings, average_rating, version, created_at, updated_at
		FROM books
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return book.Book{}, storage.ErrNotFound
		}
		return book.Book{}, err
	}
	return toBook(row)
}

func (s *Store) ListBooks(ctx context.Context) ([]book.Book, error) {
	return s.listBooks(ctx, `
		SELECT id, owner_user_id, title, author, image_ref, year, genre, ratings, average_rating, version, created_at, updated_at
		FROM books
		ORDER BY created_at
	`)
}

func (s *Store) ListBestRated(ctx context.Context, limit int) ([]book.Book, error) {
	return s.listBooks(ctx, `
		SELECT id, owner_user_id, title, author, image_ref, year, genre, ratings, average_rating, version, created_at, updated_at
		FROM books
		ORDER BY average_rating DESC, created_at
		LIMIT $1
	`, limit)
}

func (s *Store) listBooks(ctx context.Context, query string, args ...interface{}) ([]book.Book, error) {
	var rows []bookRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	result := make([]book.Book, 0, len(rows))
	for _, row := range rows {
		b, err := toBook(row)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM books WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MergeRating upserts the rater's entry and recomputes the average using an
// optimistic loop: the merged list is written back only when the row version
// is unchanged, so interleaved submissions for the same book are never lost.
func (s *Store) MergeRating(ctx context.Context, bookID, raterID string, grade float64) (book.Book, error) {
	for attempt := 0; attempt < mergeRetries; attempt++ {
		var snapshot struct {
			Ratings []byte `db:"ratings"`
			Version int64  `db:"version"`
		}
		err := s.db.GetContext(ctx, &snapshot, `
			SELECT ratings, version FROM books WHERE id = $1
		`, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return book.Book{}, storage.ErrNotFound
			}
			return book.Book{}, err
		}

		current, err := unmarshalRatings(snapshot.Ratings)
		if err != nil {
			return book.Book{}, err
		}

		merged := book.MergeRating(current, raterID, grade)
		average := book.Mean(merged)

		ratingsJSON, err := marshalRatings(merged)
		if err != nil {
			return book.Book{}, err
		}

		now := time.Now().UTC()
		result, err := s.db.ExecContext(ctx, `
			UPDATE books
			SET ratings = $2, average_rating = $3, version = version + 1, updated_at = $4
			WHERE id = $1 AND version = $5
		`, bookID, ratingsJSON, average, now, snapshot.Version)
		if err != nil {
			return book.Book{}, err
		}
		if rows, _ := result.RowsAffected(); rows == 1 {
			return s.GetBook(ctx, bookID)
		}
		// Version moved under us: another rater committed first. Re-read
		// and retry; the next snapshot reports NotFound if the book was
		// deleted in the meantime.
	}
	return book.Book{}, storage.ErrConflict
}

// Helpers ---------------------------------------------------------------------

func marshalRatings(ratings []book.Rating) ([]byte, error) {
	docs := make([]ratingDoc, 0, len(ratings))
	for _, r := range ratings {
		docs = append(docs, ratingDoc{UserID: r.UserID, Grade: r.Grade})
	}
	return json.Marshal(docs)
}

func unmarshalRatings(raw []byte) ([]book.Rating, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []ratingDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	ratings := make([]book.Rating, 0, len(docs))
	for _, d := range docs {
		ratings = append(ratings, book.Rating{UserID: d.UserID, Grade: d.Grade})
	}
	return ratings, nil
}

func toBook(row bookRow) (book.Book, error) {
	ratings, err := unmarshalRatings(row.Ratings)
	if err != nil {
		return book.Book{}, err
	}
	return book.Book{
		ID:            row.ID,
		OwnerUserID:   row.OwnerUserID,
		Title:         row.Title,
		Author:        row.Author,
		ImageRef:      row.ImageRef,
		Year:          row.Year,
		Genre:         row.Genre,
		Ratings:       ratings,
		AverageRating: row.AverageRating,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, nil
}

func toUser(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}
