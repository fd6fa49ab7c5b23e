package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/middleware"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// ShopHandler exposes the catalog, the secure carrier, checkout, and the
// admin product CRUD.
type ShopHandler struct {
	console *services.Console
}

// NewShopHandler creates the shop handler.
func NewShopHandler(console *services.Console) *ShopHandler {
	return &ShopHandler{console: console}
}

// ListProducts returns a page of the cached catalog.
//
// GET /api/products?page=1&page_size=20
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePageParams(r)
	products := h.console.Catalog.Products()
	page := utils.PageSlice(products, params)

	utils.RespondWithSuccess(w, r, utils.NewPaginatedResponse(page, params, int64(len(products))))
}

// RefreshProducts re-fetches the catalog from the backend.
//
// POST /api/products/refresh
func (h *ShopHandler) RefreshProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.console.Catalog.FetchCatalog(r.Context()); err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}
	utils.RespondWithSuccess(w, r, h.console.Catalog.Products())
}

func validateProduct(p *models.Product) string {
	if strings.TrimSpace(p.Name) == "" {
		return "Product name is required"
	}
	if p.Price < 0 {
		return "Product price must not be negative"
	}
	switch p.ProductType {
	case models.ProductPhysical, models.ProductDigital, models.ProductService:
	default:
		return "Unknown product type"
	}
	return ""
}

// AddProduct registers a new asset on the backend (admin).
//
// POST /api/admin/products
func (h *ShopHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.IsAdmin() {
		utils.RespondWithError(w, r, http.StatusForbidden, "Admin clearance required")
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateProduct(&product); msg != "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, msg)
		return
	}

	created, err := h.console.Catalog.AddProduct(r.Context(), product)
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithJSON(w, r, http.StatusCreated, utils.Envelope{
		Success:   true,
		Data:      created,
		RequestID: utils.GetRequestID(r.Context()),
	})
}

// UpdateProduct updates an asset's metadata on the backend (admin).
//
// PUT /api/admin/products/{id}
func (h *ShopHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.IsAdmin() {
		utils.RespondWithError(w, r, http.StatusForbidden, "Admin clearance required")
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	product.ID = chi.URLParam(r, "id")
	if msg := validateProduct(&product); msg != "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.console.Catalog.UpdateProduct(r.Context(), product)
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithSuccess(w, r, updated)
}

// DeleteProduct removes an asset from the backend catalog (admin).
//
// DELETE /api/admin/products/{id}
func (h *ShopHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.IsAdmin() {
		utils.RespondWithError(w, r, http.StatusForbidden, "Admin clearance required")
		return
	}

	if err := h.console.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithMessage(w, r, http.StatusOK, "Asset purged from global manifest")
}

type cartResponse struct {
	Items []models.CartItem `json:"items"`
	Count int               `json:"count"`
	Total float64           `json:"total"`
}

func (h *ShopHandler) cartSnapshot() cartResponse {
	count := h.console.Catalog.CartItemCount()
	middleware.SetCartItems(float64(count))
	return cartResponse{
		Items: h.console.Catalog.Cart(),
		Count: count,
		Total: h.console.Catalog.CartTotal(),
	}
}

// Cart returns the current carrier contents with derived count and total.
//
// GET /api/cart
func (h *ShopHandler) Cart(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, h.cartSnapshot())
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddToCart puts a catalog product into the carrier, merging by product.
//
// POST /api/cart
func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, ok := h.console.Catalog.Product(req.ProductID)
	if !ok {
		utils.RespondWithError(w, r, http.StatusNotFound, "Product not found in manifest")
		return
	}

	h.console.Catalog.AddToCart(product, req.Quantity)
	utils.RespondWithSuccess(w, r, h.cartSnapshot())
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartQuantity sets a carrier line's quantity; zero removes it.
//
// PUT /api/cart/{productId}
func (h *ShopHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.console.Catalog.UpdateQuantity(chi.URLParam(r, "productId"), req.Quantity)
	utils.RespondWithSuccess(w, r, h.cartSnapshot())
}

// RemoveFromCart drops a carrier line entirely.
//
// DELETE /api/cart/{productId}
func (h *ShopHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.console.Catalog.RemoveFromCart(chi.URLParam(r, "productId"))
	utils.RespondWithSuccess(w, r, h.cartSnapshot())
}

type checkoutResponse struct {
	Result             *models.CheckoutResult `json:"result"`
	PendingTargetOrder *models.PentestOrder   `json:"pendingTargetOrder,omitempty"`
	View               string                 `json:"view"`
}

// Checkout runs the acquisition protocol on the carrier contents.
//
// POST /api/checkout
func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result, err := h.console.Checkout(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCartEmpty):
			middleware.IncrementCheckouts("empty_cart")
			utils.RespondWithError(w, r, http.StatusBadRequest, "Secure Carrier is empty. No assets for acquisition.")
		case errors.Is(err, services.ErrCheckoutInFlight):
			middleware.IncrementCheckouts("in_flight")
			utils.RespondWithError(w, r, http.StatusConflict, "Acquisition already in progress")
		case h.console.Session.User() == nil:
			middleware.IncrementCheckouts("unauthenticated")
			utils.RespondWithError(w, r, http.StatusUnauthorized, err.Error())
		default:
			middleware.IncrementCheckouts("backend_error")
			utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		}
		return
	}
	middleware.IncrementCheckouts("success")
	middleware.SetCartItems(0)

	utils.RespondWithSuccess(w, r, checkoutResponse{
		Result:             result,
		PendingTargetOrder: h.console.Orders.PendingTargetOrder(),
		View:               string(h.console.Views.Current()),
	})
}
