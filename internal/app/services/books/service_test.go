package books

import (
	"context"
	"testing"

	"github.com/shelfworks/catalog-service/internal/app/storage/memory"
	"github.com/shelfworks/catalog-service/internal/errors"
	"github.com/shelfworks/catalog-service/internal/objectstore"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	objects *objectstore.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	objects := objectstore.NewMemory()
	return &fixture{
		svc:     New(store, objects, nil, logger.NewDefault("test")),
		store:   store,
		objects: objects,
	}
}

func testImage() *ImageUpload {
	return &ImageUpload{
		Filename:    "cover.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	}
}

func TestCreateWithImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "owner-1", Input{Title: "Dune", Author: "Frank Herbert", Year: 1965, Genre: "sf"}, testImage())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated book id")
	}
	if created.OwnerUserID != "owner-1" {
		t.Fatalf("owner = %q", created.OwnerUserID)
	}
	if created.ImageRef == "" {
		t.Fatal("expected a stored image reference")
	}
	if _, ok := f.objects.Get(created.ImageRef); !ok {
		t.Fatal("image bytes should be in the object store")
	}
	if url := f.svc.ImageURL(created.ImageRef); url == "" {
		t.Fatal("expected a resolvable image URL")
	}
}

func TestCreateWithoutImage(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), "owner-1", Input{Title: "Dune", Author: "Frank Herbert"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ImageRef != "" {
		t.Fatalf("image ref = %q, want empty", created.ImageRef)
	}
	if f.svc.ImageURL(created.ImageRef) != "" {
		t.Fatal("books without an image must yield an empty URL")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing title", in: Input{Author: "Frank Herbert"}},
		{name: "missing author", in: Input{Title: "Dune"}},
		{name: "blank title", in: Input{Title: "   ", Author: "Frank Herbert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, "owner-1", tt.in, nil)
			svcErr := errors.GetServiceError(err)
			if svcErr == nil || svcErr.Code != errors.CodeValidation {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestUpdateByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "owner-1", Input{Title: "Dune", Author: "Frank Herbert"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.Update(ctx, "owner-1", created.ID, Input{Title: "Dune Messiah", Author: "Frank Herbert", Year: 1969}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Dune Messiah" || updated.Year != 1969 {
		t.Fatalf("unexpected book after update: %+v", updated)
	}
}

func TestUpdateByNonOwnerLooksLikeMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "owner-1", Input{Title: "Dune", Author: "Frank Herbert"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Update(ctx, "intruder", created.ID, Input{Title: "Hijacked", Author: "X"}, nil)
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("expected not found for a non-owner, got %v", err)
	}

	got, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Dune" {
		t.Fatalf("non-owner update must not stick, title = %q", got.Title)
	}
}

func TestUpdateReplacesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "owner-1", Input{Title: "Dune", Author: "Frank Herbert"}, testImage())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldRef := created.ImageRef

	updated, err := f.svc.Update(ctx, "owner-1", created.ID, Input{Title: "Dune", Author: "Frank Herbert"}, &ImageUpload{
		Filename:    "new.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageRef == oldRef || updated.ImageRef == "" {
		t.Fatalf("expected a new image reference, got %q", updated.ImageRef)
	}
	if _, ok := f.objects.Get(oldRef); ok {
		t.Fatal("the replaced image should be deleted")
	}
	if _, ok := f.objects.Get(updated.ImageRef); !ok {
		t.Fatal("the new image should be stored")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "owner-1", Input{Title: "Dune", Author: "Frank Herbert"}, testImage())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Delete(ctx, "owner-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = f.svc.Get(ctx, created.ID)
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if f.objects.Len() != 0 {
		t.Fatal("the cover image should be removed with the book")
	}
}

func TestDeleteByNonOwnerLooksLikeMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "owner-1", Input{Title: "Dune", Author: "Frank Herbert"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.svc.Delete(ctx, "intruder", created.ID)
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("expected not found for a non-owner, got %v", err)
	}
	if _, err := f.svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("book should survive a non-owner delete: %v", err)
	}
}

func TestBestRatedReturnsTopThree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	grades := map[string]float64{"A": 2, "B": 5, "C": 4, "D": 3}
	for title, grade := range grades {
		created, err := f.svc.Create(ctx, "owner-1", Input{Title: title, Author: "X"}, nil)
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		if _, err := f.store.MergeRating(ctx, created.ID, "rater-1", grade); err != nil {
			t.Fatalf("rate %s: %v", title, err)
		}
	}

	best, err := f.svc.BestRated(ctx)
	if err != nil {
		t.Fatalf("best rated: %v", err)
	}
	if len(best) != 3 {
		t.Fatalf("got %d books, want 3", len(best))
	}
	wantOrder := []string{"B", "C", "D"}
	for i, b := range best {
		if b.Title != wantOrder[i] {
			t.Fatalf("position %d = %q, want %q", i, b.Title, wantOrder[i])
		}
	}
}

func TestListReturnsAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B"} {
		if _, err := f.svc.Create(ctx, "owner-1", Input{Title: title, Author: "X"}, nil); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	list, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d books, want 2", len(list))
	}
}
