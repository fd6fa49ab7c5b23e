package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// OrdersHandler exposes pentest orders and acquired digital assets,
// including the admin order operations.
type OrdersHandler struct {
	console *services.Console
}

// NewOrdersHandler creates the orders handler.
func NewOrdersHandler(console *services.Console) *OrdersHandler {
	return &OrdersHandler{console: console}
}

// ListOrders returns a page of the operator's pentest orders, newest
// first.
//
// GET /api/orders?page=1&page_size=20
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePageParams(r)
	orders := h.console.Orders.Orders()
	page := utils.PageSlice(orders, params)

	utils.RespondWithSuccess(w, r, utils.NewPaginatedResponse(page, params, int64(len(orders))))
}

// ListAssets returns a page of the operator's acquired digital assets,
// newest first.
//
// GET /api/assets?page=1&page_size=20
func (h *OrdersHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePageParams(r)
	assets := h.console.Orders.Assets()
	page := utils.PageSlice(assets, params)

	utils.RespondWithSuccess(w, r, utils.NewPaginatedResponse(page, params, int64(len(assets))))
}

// RefreshUserData re-fetches orders and assets from the backend.
//
// POST /api/orders/refresh
func (h *OrdersHandler) RefreshUserData(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.Authenticated() {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "No active session")
		return
	}

	if err := h.console.Orders.FetchUserData(r.Context()); err != nil {
		// Partial failures are already in the error log; report them but
		// return whatever made it through.
		utils.RespondWithJSON(w, r, http.StatusOK, utils.Envelope{
			Success:   true,
			Data:      map[string]interface{}{"orders": h.console.Orders.Orders(), "assets": h.console.Orders.Assets()},
			Message:   err.Error(),
			RequestID: utils.GetRequestID(r.Context()),
		})
		return
	}

	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"orders": h.console.Orders.Orders(),
		"assets": h.console.Orders.Assets(),
	})
}

// PendingTarget returns the order currently awaiting target info, if any.
//
// GET /api/orders/pending-target
func (h *OrdersHandler) PendingTarget(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"order": h.console.Orders.PendingTargetOrder(),
	})
}

// SubmitTargetInfo attaches the engagement scope to an order. The scope
// must name at least one of target URL or target IP; the backend is never
// called otherwise.
//
// POST /api/orders/{id}/target-info
func (h *OrdersHandler) SubmitTargetInfo(w http.ResponseWriter, r *http.Request) {
	var info models.PentestTargetInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !info.HasTarget() {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Target URL or Target IP is required")
		return
	}

	order, err := h.console.Orders.SubmitTargetInfo(r.Context(), chi.URLParam(r, "id"), info)
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithSuccess(w, r, order)
}

// Acknowledge marks the latest admin update on an order as seen. Purely
// local; fails when the order is unknown or carries no admin update.
//
// POST /api/orders/{id}/ack
func (h *OrdersHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if !h.console.Orders.AcknowledgeAdminUpdate(chi.URLParam(r, "id")) {
		utils.RespondWithError(w, r, http.StatusBadRequest, "No admin update to acknowledge")
		return
	}
	utils.RespondWithMessage(w, r, http.StatusOK, "Admin update acknowledged")
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Feedback submits the operator's rating for a delivered report. A rating
// greater than zero is required.
//
// POST /api/orders/{id}/feedback
func (h *OrdersHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Rating <= 0 {
		utils.RespondWithError(w, r, http.StatusBadRequest, "A rating greater than zero is required")
		return
	}

	order, err := h.console.Orders.SubmitFeedback(r.Context(), chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithSuccess(w, r, order)
}

// AdminListOrders re-fetches and returns every order in the system
// (admin).
//
// GET /api/admin/orders
func (h *OrdersHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.IsAdmin() {
		utils.RespondWithError(w, r, http.StatusForbidden, "Admin clearance required")
		return
	}

	orders, err := h.console.Orders.RefreshAdminOrders(r.Context())
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	params := utils.ParsePageParams(r)
	page := utils.PageSlice(orders, params)
	utils.RespondWithSuccess(w, r, utils.NewPaginatedResponse(page, params, int64(len(orders))))
}

type statusUpdateRequest struct {
	Status     models.PentestStatus `json:"status"`
	AdminNotes string               `json:"adminNotes"`
}

// AdminUpdateStatus moves an order through its lifecycle (admin).
//
// PUT /api/admin/orders/{id}/status
func (h *OrdersHandler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.IsAdmin() {
		utils.RespondWithError(w, r, http.StatusForbidden, "Admin clearance required")
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Unknown order status")
		return
	}

	order, err := h.console.Orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.AdminNotes)
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithSuccess(w, r, order)
}

// AdminNotify pushes the latest admin update to the customer (admin).
//
// POST /api/admin/orders/{id}/notify
func (h *OrdersHandler) AdminNotify(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.IsAdmin() {
		utils.RespondWithError(w, r, http.StatusForbidden, "Admin clearance required")
		return
	}

	order, err := h.console.Orders.NotifyCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithSuccess(w, r, order)
}
