package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/httpx"
)

// Catalog is the read side of product storage.
type Catalog interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewHandler(catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleList serves GET /products with optional category and veg filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		httpx.WriteError(w, h.logger, err)
		return
	}

	category := r.URL.Query().Get("category")
	vegOnly := r.URL.Query().Get("veg") == "true"
	if category != "" || vegOnly {
		filtered := products[:0]
		for _, p := range products {
			if category != "" && !strings.EqualFold(string(p.Category), category) {
				continue
			}
			if vegOnly && !p.IsVeg {
				continue
			}
			filtered = append(filtered, p)
		}
		products = filtered
	}

	h.logger.Info("products listed", "count", len(products))
	httpx.WriteData(w, h.logger, http.StatusOK, products, map[string]int{"count": len(products)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, h.logger, domain.Invalid("missing product id"))
		return
	}

	product, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		httpx.WriteError(w, h.logger, err)
		return
	}

	if product == nil {
		httpx.WriteError(w, h.logger, fmt.Errorf("%w: product %s", domain.ErrNotFound, id))
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, product, nil)
}
