package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/domain/user"
	"github.com/shelfworks/catalog-service/internal/app/storage"
)

func TestCreateUserAssignsID(t *testing.T) {
	s := New()

	u, err := s.CreateUser(context.Background(), user.User{Email: "a@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected a generated id")
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("expected a creation timestamp")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, user.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := s.CreateUser(ctx, user.User{Email: "A@Example.com"})
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestGetUserByEmailIsCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Email: "Reader@Example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id = %q, want %q", got.ID, created.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := New()

	if _, err := s.GetUser(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateBookOnlyTouchesDescriptiveFields(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateBook(ctx, book.Book{OwnerUserID: "owner", Title: "Dune", Author: "Herbert"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if _, err := s.MergeRating(ctx, created.ID, "rater", 5); err != nil {
		t.Fatalf("merge rating: %v", err)
	}

	updated, err := s.UpdateBook(ctx, book.Book{
		ID:     created.ID,
		Title:  "Dune Messiah",
		Author: "Herbert",
		Year:   1969,
	})
	if err != nil {
		t.Fatalf("update book: %v", err)
	}

	if updated.Title != "Dune Messiah" {
		t.Fatalf("title = %q", updated.Title)
	}
	// An update must never clobber ratings, the average, or the owner.
	if len(updated.Ratings) != 1 || updated.AverageRating != 5 {
		t.Fatalf("ratings lost on update: %+v", updated)
	}
	if updated.OwnerUserID != "owner" {
		t.Fatalf("owner = %q", updated.OwnerUserID)
	}
}

func TestUpdateBookNotFound(t *testing.T) {
	s := New()

	_, err := s.UpdateBook(context.Background(), book.Book{ID: "missing", Title: "X"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteBook(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateBook(ctx, book.Book{OwnerUserID: "owner", Title: "Dune"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	if err := s.DeleteBook(ctx, created.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if err := s.DeleteBook(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListBestRatedOrdersAndLimits(t *testing.T) {
	s := New()
	ctx := context.Background()

	grades := map[string]float64{"A": 2, "B": 5, "C": 4, "D": 3}
	for title, grade := range grades {
		b, err := s.CreateBook(ctx, book.Book{OwnerUserID: "owner", Title: title})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		if _, err := s.MergeRating(ctx, b.ID, "rater", grade); err != nil {
			t.Fatalf("rate %s: %v", title, err)
		}
	}

	best, err := s.ListBestRated(ctx, 3)
	if err != nil {
		t.Fatalf("list best rated: %v", err)
	}
	if len(best) != 3 {
		t.Fatalf("got %d books, want 3", len(best))
	}
	for i, want := range []string{"B", "C", "D"} {
		if best[i].Title != want {
			t.Fatalf("position %d = %q, want %q", i, best[i].Title, want)
		}
	}
}

func TestGetBookReturnsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateBook(ctx, book.Book{OwnerUserID: "owner", Title: "Dune"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if _, err := s.MergeRating(ctx, created.ID, "rater", 5); err != nil {
		t.Fatalf("merge rating: %v", err)
	}

	got, err := s.GetBook(ctx, created.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	got.Ratings[0].Grade = 0

	again, err := s.GetBook(ctx, created.ID)
	if err != nil {
		t.Fatalf("get book again: %v", err)
	}
	if again.Ratings[0].Grade != 5 {
		t.Fatal("mutating a returned book leaked into the store")
	}
}

func TestMergeRatingConcurrentRaters(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateBook(ctx, book.Book{OwnerUserID: "owner", Title: "Dune"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	const raters = 50
	var wg sync.WaitGroup
	for i := 0; i < raters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := s.MergeRating(ctx, created.ID, fmt.Sprintf("rater-%d", n), 3); err != nil {
				t.Errorf("merge %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.GetBook(ctx, created.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if len(got.Ratings) != raters {
		t.Fatalf("ratings = %d, want %d", len(got.Ratings), raters)
	}
	if got.AverageRating != 3 {
		t.Fatalf("average = %v, want 3", got.AverageRating)
	}
}

func TestMergeRatingMissingBook(t *testing.T) {
	s := New()

	_, err := s.MergeRating(context.Background(), "missing", "rater", 3)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
