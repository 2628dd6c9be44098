package db_models

type ProductKind string

const (
	ProductKindKit     ProductKind = "kit"     // impression kit, charged up front
	ProductKindAligner ProductKind = "aligner" // the financed item
)

type Product struct {
	BaseModel
	Code        string      `gorm:"uniqueIndex"`
	Name        string
	Description *string
	Kind        ProductKind `gorm:"index"`
	// Amounts are minor units (cents). DiscountedPriceMinor is the
	// pay-in-full price; zero means no discount is offered.
	PriceMinor           int64
	DiscountedPriceMinor int64
	Currency             string `gorm:"size:3"`
	IsActive             bool   `gorm:"default:true"`
}
