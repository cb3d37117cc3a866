package httpapi

import (
	"net/http"

	"github.com/shelfworks/catalog-service/internal/app/domain/book"
	"github.com/shelfworks/catalog-service/internal/app/services/books"
	"github.com/shelfworks/catalog-service/internal/errors"
	"github.com/shelfworks/catalog-service/internal/pipeline"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type bookPayload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

type ratingPayload struct {
	UserID string  `json:"userId"`
	Rating float64 `json:"rating"`
}

type ratingView struct {
	UserID string  `json:"userId"`
	Grade  float64 `json:"grade"`
}

type bookView struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	Title         string       `json:"title"`
	Author        string       `json:"author"`
	ImageURL      string       `json:"imageUrl"`
	Year          int          `json:"year"`
	Genre         string       `json:"genre"`
	Ratings       []ratingView `json:"ratings"`
	AverageRating float64      `json:"averageRating"`
}

func (a *API) signup(rc *pipeline.RequestContext) error {
	var payload credentialsPayload
	if err := rc.BindJSON(&payload); err != nil {
		return err
	}

	if _, err := a.accounts.Signup(rc.Request.Context(), payload.Email, payload.Password); err != nil {
		return err
	}

	rc.Status(http.StatusCreated)
	rc.Result(map[string]string{"message": "user created"})
	return nil
}

func (a *API) login(rc *pipeline.RequestContext) error {
	var payload credentialsPayload
	if err := rc.BindJSON(&payload); err != nil {
		return err
	}

	userID, token, err := a.accounts.Login(rc.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	rc.Result(map[string]string{"userId": userID, "token": token})
	return nil
}

func (a *API) createBook(rc *pipeline.RequestContext) error {
	var payload bookPayload
	if err := rc.BindJSON(&payload); err != nil {
		return err
	}

	created, err := a.books.Create(rc.Request.Context(), rc.Identity.SubjectID, books.Input{
		Title:  payload.Title,
		Author: payload.Author,
		Year:   payload.Year,
		Genre:  payload.Genre,
	}, uploadToImage(rc.Upload))
	if err != nil {
		return err
	}

	rc.Status(http.StatusCreated)
	rc.Result(a.toView(created))
	return nil
}

func (a *API) listBooks(rc *pipeline.RequestContext) error {
	list, err := a.books.List(rc.Request.Context())
	if err != nil {
		return err
	}
	rc.Result(a.toViews(list))
	return nil
}

func (a *API) bestRated(rc *pipeline.RequestContext) error {
	list, err := a.books.BestRated(rc.Request.Context())
	if err != nil {
		return err
	}
	rc.Result(a.toViews(list))
	return nil
}

func (a *API) getBook(rc *pipeline.RequestContext) error {
	b, err := a.books.Get(rc.Request.Context(), rc.PathParam("id"))
	if err != nil {
		return err
	}
	rc.Result(a.toView(b))
	return nil
}

func (a *API) updateBook(rc *pipeline.RequestContext) error {
	var payload bookPayload
	if err := rc.BindJSON(&payload); err != nil {
		return err
	}

	updated, err := a.books.Update(rc.Request.Context(), rc.Identity.SubjectID, rc.PathParam("id"), books.Input{
		Title:  payload.Title,
		Author: payload.Author,
		Year:   payload.Year,
		Genre:  payload.Genre,
	}, uploadToImage(rc.Upload))
	if err != nil {
		return err
	}

	rc.Result(a.toView(updated))
	return nil
}

func (a *API) deleteBook(rc *pipeline.RequestContext) error {
	if err := a.books.Delete(rc.Request.Context(), rc.Identity.SubjectID, rc.PathParam("id")); err != nil {
		return err
	}
	rc.Result(map[string]string{"message": "book deleted"})
	return nil
}

func (a *API) rateBook(rc *pipeline.RequestContext) error {
	var payload ratingPayload
	if err := rc.BindJSON(&payload); err != nil {
		return err
	}

	// The bearer identity must be the rater it claims to act for.
	if payload.UserID != rc.Identity.SubjectID {
		return errors.Unauthorized("cannot rate on behalf of another user")
	}

	updated, err := a.ratings.Submit(rc.Request.Context(), rc.PathParam("id"), payload.UserID, payload.Rating)
	if err != nil {
		return err
	}

	rc.Result(a.toView(updated))
	return nil
}

// Views -----------------------------------------------------------------------

func (a *API) toView(b book.Book) bookView {
	ratings := make([]ratingView, 0, len(b.Ratings))
	for _, r := range b.Ratings {
		ratings = append(ratings, ratingView{UserID: r.UserID, Grade: r.Grade})
	}
	return bookView{
		ID:            b.ID,
		UserID:        b.OwnerUserID,
		Title:         b.Title,
		Author:        b.Author,
		ImageURL:      a.books.ImageURL(b.ImageRef),
		Year:          b.Year,
		Genre:         b.Genre,
		Ratings:       ratings,
		AverageRating: b.AverageRating,
	}
}

func (a *API) toViews(list []book.Book) []bookView {
	views := make([]bookView, 0, len(list))
	for _, b := range list {
		views = append(views, a.toView(b))
	}
	return views
}

func uploadToImage(upload *pipeline.UploadedFile) *books.ImageUpload {
	if upload == nil {
		return nil
	}
	return &books.ImageUpload{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Data:        upload.Data,
	}
}
