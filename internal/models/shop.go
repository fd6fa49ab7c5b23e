package models

import (
	"sort"
	"time"
)

// ProductType classifies shop entries. Services spawn pentest orders at
// checkout, digital products spawn acquired digital assets, physical assets
// spawn neither.
type ProductType string

// Supported product types.
const (
	ProductPhysical ProductType = "physical"
	ProductDigital  ProductType = "digital"
	ProductService  ProductType = "service"
)

// DigitalAssetOutputFormat is the content format of a generated digital
// asset.
type DigitalAssetOutputFormat string

// Supported output formats for generated digital assets.
const (
	FormatText       DigitalAssetOutputFormat = "text"
	FormatMarkdown   DigitalAssetOutputFormat = "markdown"
	FormatJSONString DigitalAssetOutputFormat = "json_string"
)

// ServiceConfig configures service products. Services with RequiresTargetInfo
// start in the "Awaiting Target Info" status after checkout.
type ServiceConfig struct {
	RequiresTargetInfo bool `json:"requiresTargetInfo"`
}

// DigitalAssetConfig configures digital products: the generation prompt sent
// to the backend AI core and the expected output format.
type DigitalAssetConfig struct {
	GenerationPrompt string                   `json:"generationPrompt"`
	OutputFormat     DigitalAssetOutputFormat `json:"outputFormat"`
}

// Product is a shop entry. The backend owns the catalog; the console holds a
// read/write cache that is resynced after admin mutations.
type Product struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Price              float64             `json:"price"`
	ImageURL           string              `json:"imageUrl,omitempty"`
	Stock              *int                `json:"stock,omitempty"`
	Category           string              `json:"category,omitempty"`
	ProductType        ProductType         `json:"productType"`
	ServiceConfig      *ServiceConfig      `json:"serviceConfig,omitempty"`
	DigitalAssetConfig *DigitalAssetConfig `json:"digitalAssetConfig,omitempty"`
}

// CartItem is one line of the operator's secure carrier. Lines are keyed by
// ProductID; a quantity reaching zero removes the line entirely.
type CartItem struct {
	ProductID          string              `json:"productId"`
	Name               string              `json:"name"`
	Price              float64             `json:"price"`
	Quantity           int                 `json:"quantity"`
	ImageURL           string              `json:"imageUrl,omitempty"`
	ProductType        ProductType         `json:"productType"`
	ServiceConfig      *ServiceConfig      `json:"serviceConfig,omitempty"`
	DigitalAssetConfig *DigitalAssetConfig `json:"digitalAssetConfig,omitempty"`
}

// PentestTargetInfo is the operator-supplied scope for a purchased pentest
// service. At least one of TargetURL or TargetIP must be present before
// submission.
type PentestTargetInfo struct {
	TargetURL  string `json:"targetUrl,omitempty"`
	TargetIP   string `json:"targetIp,omitempty"`
	ScopeNotes string `json:"scopeNotes,omitempty"`
}

// HasTarget reports whether the scope names at least one target.
func (t PentestTargetInfo) HasTarget() bool {
	return t.TargetURL != "" || t.TargetIP != ""
}

// PentestStatus is the backend-driven lifecycle of a pentest order.
type PentestStatus string

// Pentest order lifecycle states, in rough progression order.
const (
	StatusAwaitingTargetInfo    PentestStatus = "Awaiting Target Info"
	StatusTargetInfoSubmitted   PentestStatus = "Target Info Submitted"
	StatusProcessingRequest     PentestStatus = "Processing Request"
	StatusInformationGathering  PentestStatus = "Information Gathering"
	StatusVulnerabilityScanning PentestStatus = "Vulnerability Scanning"
	StatusAnalysisReporting     PentestStatus = "Analysis & Reporting"
	StatusReportReady           PentestStatus = "Report Ready"
	StatusAdminReview           PentestStatus = "Admin Review"
	StatusCompleted             PentestStatus = "Completed"
)

// Valid reports whether the status is a known lifecycle state.
func (s PentestStatus) Valid() bool {
	switch s {
	case StatusAwaitingTargetInfo, StatusTargetInfoSubmitted, StatusProcessingRequest,
		StatusInformationGathering, StatusVulnerabilityScanning, StatusAnalysisReporting,
		StatusReportReady, StatusAdminReview, StatusCompleted:
		return true
	}
	return false
}

// PentestFinding is a single finding inside a security report.
type PentestFinding struct {
	ID              string   `json:"id"`
	Severity        string   `json:"severity"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	CWE             string   `json:"cwe,omitempty"`
	Recommendation  string   `json:"recommendation,omitempty"`
	Evidence        string   `json:"mockEvidence,omitempty"`
	MitigationSteps []string `json:"mockMitigationSteps,omitempty"`
	ExploitPath     []string `json:"simulatedExploitPath,omitempty"`
}

// SecurityReport is the generated deliverable of a completed pentest order.
type SecurityReport struct {
	ReportID         string            `json:"reportId"`
	TargetSummary    PentestTargetInfo `json:"targetSummary"`
	ExecutiveSummary string            `json:"executiveSummary"`
	Findings         []PentestFinding  `json:"findings"`
	OverallRiskScore *float64          `json:"overallRiskScore,omitempty"`
	GeneratedDate    time.Time         `json:"generatedDate"`
	Methodology      string            `json:"methodology,omitempty"`
}

// CustomerFeedback is the operator's rating of a delivered report.
// Rating must be greater than zero before submission is allowed.
type CustomerFeedback struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// PentestOrder tracks one purchased pentest service through its lifecycle.
//
// The backend transmits order dates as ISO strings. Every order received
// from the API must pass through Normalize before it enters console state;
// Normalize is idempotent, so re-normalizing an already hydrated order is
// safe.
type PentestOrder struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Username    string             `json:"username,omitempty"`
	ProductID   string             `json:"productId"`
	ProductName string             `json:"productName,omitempty"`
	OrderDate   time.Time          `json:"orderDate"`
	TargetInfo  *PentestTargetInfo `json:"targetInfo"`
	Status      PentestStatus      `json:"status"`
	Report      *SecurityReport    `json:"report"`
	AdminNotes  string             `json:"adminNotes,omitempty"`

	// Admin update notification bookkeeping.
	LastAdminUpdateTimestamp          string `json:"lastAdminUpdateTimestamp,omitempty"`
	CustomerNotifiedOfLastAdminUpdate bool   `json:"customerNotifiedOfLastAdminUpdate,omitempty"`
	LastNotificationTimestamp         string `json:"lastNotificationTimestamp,omitempty"`

	CustomerFeedback *CustomerFeedback `json:"customerFeedback,omitempty"`
}

// Normalize coerces the order's timestamps into UTC, including the nested
// report's generation date when a report is present. Applying Normalize
// twice is a no-op.
func (o *PentestOrder) Normalize() {
	o.OrderDate = o.OrderDate.UTC()
	if o.Report != nil {
		o.Report.GeneratedDate = o.Report.GeneratedDate.UTC()
	}
}

// NormalizeOrders applies Normalize to every order in the slice.
func NormalizeOrders(orders []PentestOrder) {
	for i := range orders {
		orders[i].Normalize()
	}
}

// SortOrdersByDateDesc sorts orders newest-first by order date.
func SortOrdersByDateDesc(orders []PentestOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderDate.After(orders[j].OrderDate)
	})
}

// GenerationStatus is the backend generation state of a digital asset.
type GenerationStatus string

// Digital asset generation states.
const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// AcquiredDigitalAsset is one purchased instance of a digital product,
// including its generated content once the backend AI core has produced it.
// The same Normalize contract as PentestOrder applies to PurchaseDate.
type AcquiredDigitalAsset struct {
	ID               string                   `json:"id"`
	UserID           string                   `json:"userId"`
	Username         string                   `json:"username,omitempty"`
	ProductID        string                   `json:"productId"`
	ProductName      string                   `json:"productName,omitempty"`
	PurchaseDate     time.Time                `json:"purchaseDate"`
	GeneratedContent *string                  `json:"generatedContent"`
	ContentFormat    DigitalAssetOutputFormat `json:"contentFormat"`
	OriginalPrompt   string                   `json:"originalPrompt,omitempty"`
	GenerationStatus GenerationStatus         `json:"generationStatus"`
	GenerationError  string                   `json:"generationError,omitempty"`
}

// Normalize coerces the asset's purchase date into UTC. Idempotent.
func (a *AcquiredDigitalAsset) Normalize() {
	a.PurchaseDate = a.PurchaseDate.UTC()
}

// NormalizeAssets applies Normalize to every asset in the slice.
func NormalizeAssets(assets []AcquiredDigitalAsset) {
	for i := range assets {
		assets[i].Normalize()
	}
}

// SortAssetsByDateDesc sorts assets newest-first by purchase date.
func SortAssetsByDateDesc(assets []AcquiredDigitalAsset) {
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].PurchaseDate.After(assets[j].PurchaseDate)
	})
}

// CheckoutResult is the payload of a successful checkout call: the pentest
// orders and digital assets the backend created from the cart contents.
type CheckoutResult struct {
	NewOrders        []PentestOrder         `json:"newOrders"`
	NewDigitalAssets []AcquiredDigitalAsset `json:"newDigitalAssets"`
}
