package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavish-fashion/lavish-backend/api/middleware"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

type stubProductService struct {
	products.Service
	listInput   products.ListInput
	listCalls   int
	slugArg     string
	slugHidden  bool
	idArg       uuid.UUID
	byIDCalls   int
	bySlugCalls int
}

func (s *stubProductService) List(_ context.Context, input products.ListInput) (*types.Page[products.ProductDTO], error) {
	s.listCalls++
	s.listInput = input
	return &types.Page[products.ProductDTO]{Items: []products.ProductDTO{}, Page: input.Page, Limit: input.Limit}, nil
}

func (s *stubProductService) GetBySlug(_ context.Context, slug string, includeHidden bool) (*products.ProductDTO, error) {
	s.bySlugCalls++
	s.slugArg = slug
	s.slugHidden = includeHidden
	return &products.ProductDTO{Slug: slug}, nil
}

func (s *stubProductService) GetByID(_ context.Context, id uuid.UUID) (*products.ProductDTO, error) {
	s.byIDCalls++
	s.idArg = id
	return &products.ProductDTO{ID: id}, nil
}

func asRole(req *http.Request, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	return req.WithContext(middleware.WithRole(ctx, role))
}

func TestProductListParsesFilters(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?category=dresses&gender=women&brand=%20Maison%20&minPrice=20&maxPrice=150.5&featured=true&sort=price_asc&page=2&limit=24&status=draft", nil)
	rec := httptest.NewRecorder()

	ProductList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.listCalls)
	in := svc.listInput
	assert.Equal(t, "dresses", in.CategorySlug)
	assert.Equal(t, "women", in.Gender)
	assert.Equal(t, "Maison", in.Brand)
	assert.Equal(t, "price_asc", in.Sort)
	assert.Equal(t, 2, in.Page)
	assert.Equal(t, 24, in.Limit)
	require.NotNil(t, in.MinPrice)
	assert.Equal(t, "20", in.MinPrice.String())
	require.NotNil(t, in.MaxPrice)
	assert.Equal(t, "150.5", in.MaxPrice.String())
	require.NotNil(t, in.Featured)
	assert.True(t, *in.Featured)
	assert.Nil(t, in.OnSale)
	assert.False(t, in.IncludeHidden)
	assert.Empty(t, in.Status, "public callers cannot filter by status")
}

func TestProductListStaffSeesHidden(t *testing.T) {
	svc := &stubProductService{}
	req := asRole(httptest.NewRequest(http.MethodGet, "/api/products?status=draft", nil), enums.UserRoleAdmin)
	rec := httptest.NewRecorder()

	ProductList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.listInput.IncludeHidden)
	assert.Equal(t, "draft", svc.listInput.Status)
}

func TestProductListRejectsBadPrice(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?minPrice=cheap", nil)
	rec := httptest.NewRecorder()

	ProductList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.listCalls)

	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
}

func withProductParam(req *http.Request, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(productParam, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestProductDetailResolvesReference(t *testing.T) {
	id := uuid.New()

	t.Run("public slug is lowercased", func(t *testing.T) {
		svc := &stubProductService{}
		req := withProductParam(httptest.NewRequest(http.MethodGet, "/api/products/Silk-Dress", nil), "Silk-Dress")
		rec := httptest.NewRecorder()

		ProductDetail(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "silk-dress", svc.slugArg)
		assert.False(t, svc.slugHidden)
	})

	t.Run("public uuid is treated as a slug", func(t *testing.T) {
		svc := &stubProductService{}
		req := withProductParam(httptest.NewRequest(http.MethodGet, "/api/products/"+id.String(), nil), id.String())
		rec := httptest.NewRecorder()

		ProductDetail(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, svc.bySlugCalls)
		assert.Zero(t, svc.byIDCalls)
	})

	t.Run("staff uuid loads by id", func(t *testing.T) {
		svc := &stubProductService{}
		req := httptest.NewRequest(http.MethodGet, "/api/products/"+id.String(), nil)
		req = withProductParam(asRole(req, enums.UserRoleAdmin), id.String())
		rec := httptest.NewRecorder()

		ProductDetail(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, svc.byIDCalls)
		assert.Equal(t, id, svc.idArg)
	})
}
