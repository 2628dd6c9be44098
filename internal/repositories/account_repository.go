package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"alignbill/internal/models/db_models"
)

type IAccountRepository interface {
	Create(ctx context.Context, account *db_models.Account) error
	GetByID(ctx context.Context, id string) (*db_models.Account, error)
	GetByEmail(ctx context.Context, email string) (*db_models.Account, error)
	UpdatePasswordHash(ctx context.Context, accountID string, hash string) error
	List(ctx context.Context, limit, offset int) ([]db_models.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) IAccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *db_models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*db_models.Account, error) {
	var account db_models.Account
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, accountID string, hash string) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Account{}).
		Where("id = ?", accountID).
		Update("password_hash", hash).Error
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]db_models.Account, error) {
	var accounts []db_models.Account
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error
	return accounts, err
}
