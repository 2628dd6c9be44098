package db_models

type Account struct {
	BaseModel
	Name         string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string `gorm:"default:user"` // "user" or "admin"

	Orders []Order `gorm:"foreignKey:UserID"`
}

func (Account) TableName() string { return "accounts" }
