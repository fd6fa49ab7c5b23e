package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	ckcache "github.com/Krypt-Cyber/ckryptbit.xyz/pkg/cache"
)

// ErrCartEmpty is returned when checkout is attempted with an empty carrier.
var ErrCartEmpty = errors.New("secure carrier is empty")

// ErrCheckoutInFlight is returned when a second checkout starts while one is
// still being processed for the same operator.
var ErrCheckoutInFlight = errors.New("checkout already in progress")

// ErrorSink accumulates operator-facing error messages. Fetch failures are
// appended, never overwritten, so every failure of the init and user-data
// sequences stays visible.
type ErrorSink interface {
	AppendError(msg string)
}

// CatalogService owns the product catalog cache and the operator's cart.
// The backend owns the catalog; this service holds a read/write copy synced
// after admin mutations and optionally backed by a Redis cache-aside layer.
//
// Cart lines are keyed by product id: adding an existing product increments
// its quantity, and a quantity reaching zero removes the line. Stock is
// deliberately not validated on add.
type CatalogService struct {
	mu     sync.RWMutex
	client *api.Client
	errors ErrorSink

	cache    *ckcache.Cache // nil disables catalog caching
	cacheTTL time.Duration

	products []models.Product
	cart     []models.CartItem
}

// NewCatalogService creates the catalog/cart service. Pass a nil cache to
// disable the Redis cache-aside layer.
func NewCatalogService(client *api.Client, errors ErrorSink, catalogCache *ckcache.Cache, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		client:   client,
		errors:   errors,
		cache:    catalogCache,
		cacheTTL: cacheTTL,
	}
}

// FetchCatalog loads the public product catalog and replaces the local copy.
// On failure the error is appended to the running error log and returned;
// the previous catalog copy is kept.
func (c *CatalogService) FetchCatalog(ctx context.Context) error {
	var products []models.Product
	var err error

	if c.cache != nil {
		err = c.cache.GetOrSet(ctx, ckcache.CatalogKey(), c.cacheTTL, &products, func() (interface{}, error) {
			return c.client.GetProducts(ctx)
		})
	} else {
		products, err = c.client.GetProducts(ctx)
	}

	if err != nil {
		c.errors.AppendError(fmt.Sprintf("Failed to load product manifest: %s", err))
		return fmt.Errorf("fetch catalog: %w", err)
	}

	c.mu.Lock()
	c.products = products
	c.mu.Unlock()

	log.Info().Int("count", len(products)).Msg("Product manifest loaded")
	return nil
}

// Products returns a snapshot of the current catalog copy.
func (c *CatalogService) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product looks up a catalog entry by id.
func (c *CatalogService) Product(productID string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == productID {
			return p, true
		}
	}
	return models.Product{}, false
}

// AddToCart merges a product into the carrier. An existing line gains
// quantity; a new product appends a line. Quantities below one are treated
// as one.
func (c *CatalogService) AddToCart(product models.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.cart {
		if c.cart[i].ProductID == product.ID {
			c.cart[i].Quantity += quantity
			return
		}
	}

	c.cart = append(c.cart, models.CartItem{
		ProductID:          product.ID,
		Name:               product.Name,
		Price:              product.Price,
		Quantity:           quantity,
		ImageURL:           product.ImageURL,
		ProductType:        product.ProductType,
		ServiceConfig:      product.ServiceConfig,
		DigitalAssetConfig: product.DigitalAssetConfig,
	})
}

// UpdateQuantity sets a cart line's quantity, clamping to zero or more.
// A quantity of zero removes the line. Unknown product ids are a no-op.
func (c *CatalogService) UpdateQuantity(productID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.cart[:0]
	for _, item := range c.cart {
		if item.ProductID == productID {
			item.Quantity = quantity
		}
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	c.cart = kept
}

// RemoveFromCart drops a cart line entirely.
func (c *CatalogService) RemoveFromCart(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.cart[:0]
	for _, item := range c.cart {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.cart = kept
}

// Cart returns a snapshot of the carrier contents.
func (c *CatalogService) Cart() []models.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.CartItem, len(c.cart))
	copy(out, c.cart)
	return out
}

// CartItemCount returns the sum of line quantities.
func (c *CatalogService) CartItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, item := range c.cart {
		total += item.Quantity
	}
	return total
}

// CartTotal returns the sum of price times quantity over all lines.
// An empty carrier totals zero.
func (c *CatalogService) CartTotal() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0.0
	for _, item := range c.cart {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ClearCart empties the carrier.
func (c *CatalogService) ClearCart() {
	c.mu.Lock()
	c.cart = nil
	c.mu.Unlock()
}

// Checkout submits the carrier to the backend. On success the carrier is
// cleared and the backend's new orders and assets are returned for merging
// into the tracking lists. A Redis lock serializes checkout per operator
// when caching is enabled.
func (c *CatalogService) Checkout(ctx context.Context, userID string) (*models.CheckoutResult, error) {
	items := c.Cart()
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	if c.cache != nil {
		lockKey := ckcache.CheckoutLockKey(userID)
		acquired, err := c.cache.SetNX(ctx, lockKey, "locked", 30*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("Checkout lock unavailable, proceeding without it")
		} else if !acquired {
			return nil, ErrCheckoutInFlight
		} else {
			defer func() {
				if err := c.cache.Delete(ctx, lockKey); err != nil {
					log.Warn().Err(err).Msg("Failed to release checkout lock")
				}
			}()
		}
	}

	result, err := c.client.ProcessCheckout(ctx, items)
	if err != nil {
		c.errors.AppendError(fmt.Sprintf("Acquisition Error: %s", err))
		return nil, err
	}

	c.ClearCart()

	log.Info().
		Int("new_orders", len(result.NewOrders)).
		Int("new_assets", len(result.NewDigitalAssets)).
		Msg("Acquisition protocol successful")
	return result, nil
}

// AddProduct registers a new catalog entry through the backend and inserts
// it into the local copy, kept sorted by name. Admin only; authorization is
// the backend's call. The Redis catalog cache is invalidated.
func (c *CatalogService) AddProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	created, err := c.client.AddProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("asset registration failed: %w", err)
	}

	c.mu.Lock()
	c.products = append([]models.Product{*created}, c.products...)
	sortProductsByName(c.products)
	c.mu.Unlock()

	c.invalidateCatalogCache(ctx)
	return created, nil
}

// UpdateProduct replaces a catalog entry through the backend and resyncs the
// local copy, kept sorted by name.
func (c *CatalogService) UpdateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	updated, err := c.client.UpdateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("asset update failed: %w", err)
	}

	c.mu.Lock()
	for i := range c.products {
		if c.products[i].ID == updated.ID {
			c.products[i] = *updated
			break
		}
	}
	sortProductsByName(c.products)
	c.mu.Unlock()

	c.invalidateCatalogCache(ctx)
	return updated, nil
}

// DeleteProduct removes a catalog entry through the backend and from the
// local copy.
func (c *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if err := c.client.DeleteProduct(ctx, productID); err != nil {
		return fmt.Errorf("asset purge failed: %w", err)
	}

	c.mu.Lock()
	kept := c.products[:0]
	for _, p := range c.products {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	c.products = kept
	c.mu.Unlock()

	c.invalidateCatalogCache(ctx)
	return nil
}

func (c *CatalogService) invalidateCatalogCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeletePattern(ctx, ckcache.CatalogPattern()); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate catalog cache")
	}
}

func sortProductsByName(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
}
