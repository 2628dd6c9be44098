package db_models

import "github.com/google/uuid"

// Feedback is a customer's rating of a finished treatment order. One
// row per order.
type Feedback struct {
	BaseModel
	OrderID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	UserID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Comment string    `gorm:"type:text"`
	Rating  int       `gorm:"not null;check:rating >= 1 AND rating <= 5"`

	Order Order `gorm:"foreignKey:OrderID"`
}

func (Feedback) TableName() string { return "feedbacks" }
