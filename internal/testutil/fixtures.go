// Package testutil provides common testing utilities, fixtures, and helpers
// for use across all test files in the console gateway.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// TestUser creates a standard-clearance operator with default values.
func TestUser() *models.User {
	return &models.User{
		ID:       uuid.NewString(),
		Username: "OperatorX",
		Email:    "operatorx@ckryptbit.xyz",
		IsAdmin:  false,
	}
}

// TestAdmin creates an admin-clearance operator.
func TestAdmin() *models.User {
	return &models.User{
		ID:       uuid.NewString(),
		Username: "RootAdmin",
		Email:    "root@ckryptbit.xyz",
		IsAdmin:  true,
	}
}

// TestProduct creates a physical shop entry with default values.
func TestProduct(name string) models.Product {
	return models.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: "Test asset",
		Price:       49.99,
		ProductType: models.ProductPhysical,
	}
}

// TestServiceProduct creates a pentest service entry that requires target
// info after checkout.
func TestServiceProduct(name string) models.Product {
	p := TestProduct(name)
	p.ProductType = models.ProductService
	p.ServiceConfig = &models.ServiceConfig{RequiresTargetInfo: true}
	return p
}

// TestDigitalProduct creates a digital product entry with a generation
// prompt.
func TestDigitalProduct(name string) models.Product {
	p := TestProduct(name)
	p.ProductType = models.ProductDigital
	p.DigitalAssetConfig = &models.DigitalAssetConfig{
		GenerationPrompt: "Generate an intel digest",
		OutputFormat:     models.FormatMarkdown,
	}
	return p
}

// TestCartItem converts a product into a carrier line with the given
// quantity.
func TestCartItem(p models.Product, quantity int) models.CartItem {
	return models.CartItem{
		ProductID:          p.ID,
		Name:               p.Name,
		Price:              p.Price,
		Quantity:           quantity,
		ProductType:        p.ProductType,
		ServiceConfig:      p.ServiceConfig,
		DigitalAssetConfig: p.DigitalAssetConfig,
	}
}

// TestOrder creates a pentest order in the given status, dated now.
func TestOrder(userID string, status models.PentestStatus) models.PentestOrder {
	return models.PentestOrder{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProductID:   uuid.NewString(),
		ProductName: "Full Spectrum Pentest",
		OrderDate:   time.Now().UTC(),
		Status:      status,
	}
}

// TestOrderAt creates a pentest order with an explicit order date.
func TestOrderAt(userID string, status models.PentestStatus, at time.Time) models.PentestOrder {
	o := TestOrder(userID, status)
	o.OrderDate = at
	return o
}

// TestAsset creates a completed acquired digital asset, dated now.
func TestAsset(userID string) models.AcquiredDigitalAsset {
	content := "# Intel Digest\nAll systems nominal."
	return models.AcquiredDigitalAsset{
		ID:               uuid.NewString(),
		UserID:           userID,
		ProductID:        uuid.NewString(),
		ProductName:      "Intel Digest",
		PurchaseDate:     time.Now().UTC(),
		GeneratedContent: &content,
		ContentFormat:    models.FormatMarkdown,
		GenerationStatus: models.GenerationCompleted,
	}
}

// TestChatMessage creates an operator-authored chat message.
func TestChatMessage(content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    models.SenderUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// TimePtr returns a pointer to the given time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}
