package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialsearch/specialsearch/internal/cache"
	"github.com/specialsearch/specialsearch/internal/domain/resource"
	"github.com/specialsearch/specialsearch/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type fakeResourcesRepo struct {
	listCalls int

	createFn  func(ctx context.Context, req resource.CreateRequest) (resource.Resource, error)
	getByIDFn func(ctx context.Context, id string) (resource.Resource, error)
	listFn    func(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error)
	updateFn  func(ctx context.Context, id string, req resource.UpdateRequest) (resource.Resource, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (f *fakeResourcesRepo) Create(ctx context.Context, req resource.CreateRequest) (resource.Resource, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return resource.Resource{ID: newUUID(), Name: req.Name, Type: req.Type}, nil
}

func (f *fakeResourcesRepo) GetByID(ctx context.Context, id string) (resource.Resource, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return resource.Resource{}, resource.ErrNotFound
}

func (f *fakeResourcesRepo) List(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error) {
	f.listCalls++

	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return []resource.Resource{{ID: newUUID(), Name: "Bright Start Clinic"}}, nil
}

func (f *fakeResourcesRepo) Update(ctx context.Context, id string, req resource.UpdateRequest) (resource.Resource, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return resource.Resource{}, resource.ErrNotFound
}

func (f *fakeResourcesRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return resource.ErrNotFound
}

func TestCreateResourceHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"name":"Bright Start Clinic","type":"clinic"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "missing_name",
			body:           `{"type":"clinic"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewResourcesHandler(&fakeResourcesRepo{})
			r := setupRouter(http.MethodPost, "/resources", h.CreateResource)

			req := httptest.NewRequest(http.MethodPost, "/resources", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListResourcesHandler_CacheHit(t *testing.T) {
	repo := &fakeResourcesRepo{}

	h := handlers.NewResourcesHandlerWithCache(repo, cache.New(time.Minute))
	r := setupRouter(http.MethodGet, "/resources", h.ListResources)

	doGet := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/resources?type=clinic", nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w
	}

	if w := doGet(); w.Code != http.StatusOK {
		t.Fatalf("first list: got status %d, body=%s", w.Code, w.Body.String())
	}
	if w := doGet(); w.Code != http.StatusOK {
		t.Fatalf("second list: got status %d, body=%s", w.Code, w.Body.String())
	}

	if repo.listCalls != 1 {
		t.Fatalf("repo.List called %d times, want 1 (second hit should be cached)", repo.listCalls)
	}
}

func TestListResourcesHandler_WriteInvalidatesCache(t *testing.T) {
	repo := &fakeResourcesRepo{}

	h := handlers.NewResourcesHandlerWithCache(repo, cache.New(time.Minute))

	r := gin.New()
	r.GET("/resources", h.ListResources)
	r.POST("/resources", h.CreateResource)

	list := func() {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("list: got status %d, body=%s", w.Code, w.Body.String())
		}
	}

	list()
	list()

	if repo.listCalls != 1 {
		t.Fatalf("repo.List called %d times before write, want 1", repo.listCalls)
	}

	req := httptest.NewRequest(http.MethodPost, "/resources",
		bytes.NewBufferString(`{"name":"New Clinic"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create: got status %d, body=%s", w.Code, w.Body.String())
	}

	list()

	if repo.listCalls != 2 {
		t.Fatalf("repo.List called %d times after write, want 2", repo.listCalls)
	}
}

func TestListResourcesHandler_ETagNotModified(t *testing.T) {
	fixed := []resource.Resource{{ID: newUUID(), Name: "Bright Start Clinic"}}

	repo := &fakeResourcesRepo{
		listFn: func(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error) {
			return fixed, nil
		},
	}

	h := handlers.NewResourcesHandler(repo)
	r := setupRouter(http.MethodGet, "/resources", h.ListResources)

	first := httptest.NewRequest(http.MethodGet, "/resources", nil)

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, first)

	if w1.Code != http.StatusOK {
		t.Fatalf("first list: got status %d, body=%s", w1.Code, w1.Body.String())
	}

	etag := w1.Header().Get("ETag")

	if etag == "" {
		t.Fatal("expected an ETag header on the list response")
	}

	second := httptest.NewRequest(http.MethodGet, "/resources", nil)
	second.Header.Set("If-None-Match", etag)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, second)

	if w2.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304, body=%s", w2.Code, w2.Body.String())
	}
	if w2.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body, got %q", w2.Body.String())
	}
}

func TestListResourcesHandler_ForwardsFilters(t *testing.T) {
	var gotFilter resource.ListFilter

	repo := &fakeResourcesRepo{
		listFn: func(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error) {
			gotFilter = filter
			return nil, nil
		},
	}

	h := handlers.NewResourcesHandler(repo)
	r := setupRouter(http.MethodGet, "/resources", h.ListResources)

	req := httptest.NewRequest(http.MethodGet, "/resources?type=Therapy&city=Amman", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if gotFilter.Type != "Therapy" || gotFilter.City != "Amman" {
		t.Fatalf("filter = %+v", gotFilter)
	}

	var resp struct {
		Items []resource.Resource `json:"items"`
		Count int                 `json:"count"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Count != 0 || len(resp.Items) != 0 {
		t.Fatalf("expected empty result, got %+v", resp)
	}
}

func TestGetResourceHandler(t *testing.T) {
	id := newUUID()

	repo := &fakeResourcesRepo{
		getByIDFn: func(ctx context.Context, got string) (resource.Resource, error) {
			if got == id {
				return resource.Resource{ID: id, Name: "Bright Start Clinic"}, nil
			}
			return resource.Resource{}, resource.ErrNotFound
		},
	}

	h := handlers.NewResourcesHandler(repo)
	r := setupRouter(http.MethodGet, "/resources/:id", h.GetResource)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources/"+id, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("not_found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources/"+newUUID(), nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
		}
	})
}

func TestDeleteResourceHandler(t *testing.T) {
	id := newUUID()

	repo := &fakeResourcesRepo{
		deleteFn: func(ctx context.Context, got string) error {
			if got == id {
				return nil
			}
			return resource.ErrNotFound
		},
	}

	h := handlers.NewResourcesHandler(repo)
	r := setupRouter(http.MethodDelete, "/resources/:id", h.DeleteResource)

	t.Run("deleted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/resources/"+id, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("got status %d, want 204, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("not_found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/resources/"+newUUID(), nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
		}
	})
}
