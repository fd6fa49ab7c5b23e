package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// ErrOrderNotFound is returned for operations against an unknown order id.
var ErrOrderNotFound = errors.New("order not found")

// OrdersService tracks pentest orders and acquired digital assets.
// Every order and asset entering the store passes through the idempotent
// date normalization of the models package, so timestamps are always UTC
// regardless of how many times a record has round-tripped the backend.
type OrdersService struct {
	mu     sync.RWMutex
	client *api.Client
	errors ErrorSink

	orders []models.PentestOrder
	assets []models.AcquiredDigitalAsset

	// pendingTarget is the order whose target-info prompt is open, set when
	// checkout returns an order in the awaiting-target-info state.
	pendingTarget *models.PentestOrder
}

// NewOrdersService creates the order/asset tracking service.
func NewOrdersService(client *api.Client, errors ErrorSink) *OrdersService {
	return &OrdersService{client: client, errors: errors}
}

// FetchUserData loads the operator's orders and assets in parallel.
// Partial failure of either side does not block hydration of the other;
// both failure messages are concatenated into one error and appended to the
// running error log.
func (o *OrdersService) FetchUserData(ctx context.Context) error {
	var wg sync.WaitGroup
	var orders []models.PentestOrder
	var assets []models.AcquiredDigitalAsset
	var ordersErr, assetsErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		orders, ordersErr = o.client.FetchMyOrders(ctx)
	}()
	go func() {
		defer wg.Done()
		assets, assetsErr = o.client.FetchMyAssets(ctx)
	}()
	wg.Wait()

	var failures []string

	if ordersErr != nil {
		failures = append(failures, fmt.Sprintf("Failed to fetch service orders: %s", ordersErr))
	} else {
		models.NormalizeOrders(orders)
		models.SortOrdersByDateDesc(orders)
		o.mu.Lock()
		o.orders = orders
		o.mu.Unlock()
	}

	if assetsErr != nil {
		failures = append(failures, fmt.Sprintf("Failed to fetch acquired intel: %s", assetsErr))
	} else {
		models.NormalizeAssets(assets)
		models.SortAssetsByDateDesc(assets)
		o.mu.Lock()
		o.assets = assets
		o.mu.Unlock()
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "\n")
		o.errors.AppendError(msg)
		return errors.New(msg)
	}

	log.Info().
		Int("orders", len(orders)).
		Int("assets", len(assets)).
		Msg("Operator data hydrated")
	return nil
}

// Orders returns a snapshot of the tracked orders, newest first.
func (o *OrdersService) Orders() []models.PentestOrder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.PentestOrder, len(o.orders))
	copy(out, o.orders)
	return out
}

// Assets returns a snapshot of the acquired digital assets, newest first.
func (o *OrdersService) Assets() []models.AcquiredDigitalAsset {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.AcquiredDigitalAsset, len(o.assets))
	copy(out, o.assets)
	return out
}

// Order looks up a tracked order by id.
func (o *OrdersService) Order(orderID string) (models.PentestOrder, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ord := range o.orders {
		if ord.ID == orderID {
			return ord, true
		}
	}
	return models.PentestOrder{}, false
}

// MergeCheckout folds the backend's checkout result into the tracking
// lists, preserving pre-existing entries and re-sorting newest first. If
// any new order awaits target info, the first such order becomes the
// pending target prompt and is returned; the prompt takes priority over any
// navigation decision.
func (o *OrdersService) MergeCheckout(result *models.CheckoutResult) *models.PentestOrder {
	models.NormalizeOrders(result.NewOrders)
	models.NormalizeAssets(result.NewDigitalAssets)

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(result.NewOrders) > 0 {
		o.orders = append(o.orders, result.NewOrders...)
		models.SortOrdersByDateDesc(o.orders)
	}
	if len(result.NewDigitalAssets) > 0 {
		o.assets = append(o.assets, result.NewDigitalAssets...)
		models.SortAssetsByDateDesc(o.assets)
	}

	for i := range result.NewOrders {
		if result.NewOrders[i].Status == models.StatusAwaitingTargetInfo {
			pending := result.NewOrders[i]
			o.pendingTarget = &pending
			return &pending
		}
	}
	return nil
}

// PendingTargetOrder returns the order whose target-info prompt is open,
// or nil when no prompt is pending.
func (o *OrdersService) PendingTargetOrder() *models.PentestOrder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pendingTarget
}

// CloseTargetPrompt dismisses the target-info prompt without submitting.
func (o *OrdersService) CloseTargetPrompt() {
	o.mu.Lock()
	o.pendingTarget = nil
	o.mu.Unlock()
}

// SubmitTargetInfo attaches engagement scope to an order and replaces the
// tracked record with the backend's updated copy. The target-info prompt is
// closed whether or not the call succeeds, matching how the prompt behaves
// in the console surface.
func (o *OrdersService) SubmitTargetInfo(ctx context.Context, orderID string, info models.PentestTargetInfo) (*models.PentestOrder, error) {
	defer o.CloseTargetPrompt()

	updated, err := o.client.SubmitTargetInfo(ctx, orderID, info)
	if err != nil {
		o.errors.AppendError(fmt.Sprintf("Target Info Submission Error: %s", err))
		return nil, err
	}

	o.replaceOrder(updated)
	log.Info().Str("order_id", orderID).Msg("Target information submitted")
	return updated, nil
}

// RefreshAdminOrders replaces the tracked order list with every order in
// the system. Admin only; the backend enforces authorization.
func (o *OrdersService) RefreshAdminOrders(ctx context.Context) ([]models.PentestOrder, error) {
	orders, err := o.client.FetchAllOrdersAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch all orders: %w", err)
	}

	models.NormalizeOrders(orders)
	models.SortOrdersByDateDesc(orders)

	o.mu.Lock()
	o.orders = orders
	o.mu.Unlock()
	return o.Orders(), nil
}

// UpdateOrderStatus transitions an order through the backend and replaces
// the tracked record. Admin only.
func (o *OrdersService) UpdateOrderStatus(ctx context.Context, orderID string, status models.PentestStatus, adminNotes string) (*models.PentestOrder, error) {
	updated, err := o.client.UpdateOrderStatusAdmin(ctx, orderID, status, adminNotes)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	o.replaceOrder(updated)
	log.Info().
		Str("order_id", orderID).
		Str("status", string(status)).
		Msg("Order status updated")
	return updated, nil
}

// NotifyCustomer marks the latest admin update as dispatched to the
// customer and replaces the tracked record. Admin only.
func (o *OrdersService) NotifyCustomer(ctx context.Context, orderID string) (*models.PentestOrder, error) {
	updated, err := o.client.NotifyCustomerAdmin(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("notify customer: %w", err)
	}

	o.replaceOrder(updated)
	return updated, nil
}

// AcknowledgeAdminUpdate is a pure local transition: it marks the operator
// as having seen the latest admin update and copies its timestamp into the
// notification timestamp. Only applies when an admin update timestamp is
// set; returns false otherwise. No backend call is made.
func (o *OrdersService) AcknowledgeAdminUpdate(orderID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.orders {
		if o.orders[i].ID == orderID && o.orders[i].LastAdminUpdateTimestamp != "" {
			o.orders[i].CustomerNotifiedOfLastAdminUpdate = true
			o.orders[i].LastNotificationTimestamp = o.orders[i].LastAdminUpdateTimestamp
			return true
		}
	}
	return false
}

// SubmitFeedback records the operator's rating of a delivered report and
// replaces the tracked record. Rating validation happens at the surface
// layer before this call.
func (o *OrdersService) SubmitFeedback(ctx context.Context, orderID string, rating int, comment string) (*models.PentestOrder, error) {
	feedback := models.CustomerFeedback{
		Rating:    rating,
		Comment:   comment,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	updated, err := o.client.SubmitFeedback(ctx, orderID, feedback)
	if err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}

	o.replaceOrder(updated)
	log.Info().Str("order_id", orderID).Int("rating", rating).Msg("Feedback logged")
	return updated, nil
}

// Clear drops all tracked orders, assets, and any pending target prompt.
// Called on logout and purge.
func (o *OrdersService) Clear() {
	o.mu.Lock()
	o.orders = nil
	o.assets = nil
	o.pendingTarget = nil
	o.mu.Unlock()
}

func (o *OrdersService) replaceOrder(updated *models.PentestOrder) {
	updated.Normalize()

	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.orders {
		if o.orders[i].ID == updated.ID {
			o.orders[i] = *updated
			return
		}
	}
	// An order updated before it was ever listed locally still gets tracked.
	o.orders = append(o.orders, *updated)
	models.SortOrdersByDateDesc(o.orders)
}
