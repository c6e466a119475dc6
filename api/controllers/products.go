package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lavish-fashion/lavish-backend/api/middleware"
	"github.com/lavish-fashion/lavish-backend/api/responses"
	"github.com/lavish-fashion/lavish-backend/api/validators"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/logger"
)

const productParam = "product"

func isStaff(r *http.Request) bool {
	return enums.UserRole(middleware.RoleFromContext(r.Context())).IsStaff()
}

// ProductList serves the storefront catalog with filters, sorting and paging.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := productListInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func productListInput(r *http.Request) (products.ListInput, error) {
	q := r.URL.Query()
	page, limit, err := validators.Pagination(r)
	if err != nil {
		return products.ListInput{}, err
	}
	input := products.ListInput{
		CategorySlug: strings.TrimSpace(q.Get("category")),
		Gender:       strings.TrimSpace(q.Get("gender")),
		Brand:        validators.SanitizeString(q.Get("brand"), 100),
		Size:         validators.SanitizeString(q.Get("size"), 20),
		Color:        validators.SanitizeString(q.Get("color"), 40),
		Search:       validators.SanitizeString(q.Get("search"), 100),
		Sort:         strings.TrimSpace(q.Get("sort")),
		Page:         page,
		Limit:        limit,
	}
	if input.MinPrice, err = validators.ParseQueryDecimal(r, "minPrice"); err != nil {
		return input, err
	}
	if input.MaxPrice, err = validators.ParseQueryDecimal(r, "maxPrice"); err != nil {
		return input, err
	}
	if input.Featured, err = validators.ParseQueryBool(r, "featured"); err != nil {
		return input, err
	}
	if input.OnSale, err = validators.ParseQueryBool(r, "onSale"); err != nil {
		return input, err
	}
	if isStaff(r) {
		input.IncludeHidden = true
		input.Status = strings.TrimSpace(q.Get("status"))
	}
	return input, nil
}

// ProductDetail resolves a product by slug. Staff may also pass the id.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(chi.URLParam(r, productParam))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product reference required"))
			return
		}

		var (
			product *products.ProductDTO
			err     error
		)
		if id, parseErr := uuid.Parse(ref); parseErr == nil && isStaff(r) {
			product, err = svc.GetByID(r.Context(), id)
		} else {
			product, err = svc.GetBySlug(r.Context(), strings.ToLower(ref), isStaff(r))
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductFeatured(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 8, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Featured(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProductRelated(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, productParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 4, 1, 20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Related(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input products.CreateProductInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, productParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input products.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductDelete discontinues the product; rows are kept for order history.
func ProductDelete(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, productParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "product discontinued")
	}
}

func ProductSetStock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, productParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input products.StockInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.SetStock(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
