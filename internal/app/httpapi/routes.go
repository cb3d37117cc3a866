// Package httpapi wires the catalog's routes onto the request pipeline and
// implements the business handlers that run at the end of each chain.
package httpapi

import (
	"net/http"

	"github.com/shelfworks/catalog-service/internal/app/services/accounts"
	"github.com/shelfworks/catalog-service/internal/app/services/books"
	"github.com/shelfworks/catalog-service/internal/app/services/ratings"
	"github.com/shelfworks/catalog-service/internal/pipeline"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// API holds the services the handlers delegate to.
type API struct {
	accounts *accounts.Service
	books    *books.Service
	ratings  *ratings.Service
	log      *logger.Logger
}

// New creates the API handler set.
func New(accountsSvc *accounts.Service, booksSvc *books.Service, ratingsSvc *ratings.Service, log *logger.Logger) *API {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &API{accounts: accountsSvc, books: booksSvc, ratings: ratingsSvc, log: log}
}

// Register installs every route on the builder. Fixed paths are registered
// before the parameterized ones so /books/bestrating never matches {id}.
func (a *API) Register(b *pipeline.Builder) {
	b.Register(pipeline.RouteSpec{
		Method:   http.MethodPost,
		Path:     "/auth/signup",
		Handlers: []pipeline.HandlerFunc{a.signup},
	})
	b.Register(pipeline.RouteSpec{
		Method:   http.MethodPost,
		Path:     "/auth/login",
		Handlers: []pipeline.HandlerFunc{a.login},
	})

	b.Register(pipeline.RouteSpec{
		Method:        http.MethodPost,
		Path:          "/books",
		RequiresAuth:  true,
		AcceptsUpload: true,
		Handlers:      []pipeline.HandlerFunc{a.createBook},
	})
	b.Register(pipeline.RouteSpec{
		Method:   http.MethodGet,
		Path:     "/books",
		Handlers: []pipeline.HandlerFunc{a.listBooks},
	})
	b.Register(pipeline.RouteSpec{
		Method:   http.MethodGet,
		Path:     "/books/bestrating",
		Handlers: []pipeline.HandlerFunc{a.bestRated},
	})
	b.Register(pipeline.RouteSpec{
		Method:   http.MethodGet,
		Path:     "/books/{id}",
		Handlers: []pipeline.HandlerFunc{a.getBook},
	})
	b.Register(pipeline.RouteSpec{
		Method:        http.MethodPut,
		Path:          "/books/{id}",
		RequiresAuth:  true,
		AcceptsUpload: true,
		Handlers:      []pipeline.HandlerFunc{a.updateBook},
	})
	b.Register(pipeline.RouteSpec{
		Method:       http.MethodDelete,
		Path:         "/books/{id}",
		RequiresAuth: true,
		Handlers:     []pipeline.HandlerFunc{a.deleteBook},
	})
	b.Register(pipeline.RouteSpec{
		Method:       http.MethodPost,
		Path:         "/books/{id}/rating",
		RequiresAuth: true,
		Handlers:     []pipeline.HandlerFunc{a.rateBook},
	})
}
