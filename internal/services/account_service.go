package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"alignbill/internal/models/db_models"
	"alignbill/internal/models/request_models"
	"alignbill/internal/models/response_models"
	"alignbill/internal/repositories"
	mem "alignbill/pkg/memcache"
	"alignbill/pkg/utils"
)

const resetTokenTTL = 30 * time.Minute

type AccountService interface {
	Register(ctx context.Context, req request_models.SignUpRequest) error
	Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AccountLoginResponse, error)
	GetProfile(ctx context.Context, accountID string) (*response_models.AccountResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req request_models.ResetPasswordRequest) error
	ListAccounts(ctx context.Context, page, pageSize int) ([]response_models.AccountResponse, error)
}

type accountService struct {
	accounts repositories.IAccountRepository
	tokens   mem.ResetTokenStore

	// nil disables reset mails (local development without SMTP)
	mailer IMailService
}

func NewAccountService(accounts repositories.IAccountRepository, tokens mem.ResetTokenStore, mailer IMailService) AccountService {
	return &accountService{
		accounts: accounts,
		tokens:   tokens,
		mailer:   mailer,
	}
}

func (s *accountService) Register(ctx context.Context, req request_models.SignUpRequest) error {
	existing, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if existing != nil {
		return utils.ErrEmailAlreadyExists
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	account := &db_models.Account{
		Name:         req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "user",
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (s *accountService) Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AccountLoginResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, utils.ErrInvalidCredentials
	}

	if err := utils.ComparePasswords(account.PasswordHash, req.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	token, err := utils.CreateToken(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: token generation: %v", utils.ErrDatabaseError, err)
	}
	return &response_models.AccountLoginResponse{Token: token}, nil
}

func (s *accountService) GetProfile(ctx context.Context, accountID string) (*response_models.AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %s", utils.ErrRecordNotFound, accountID)
	}
	resp := response_models.NewAccountResponse(account)
	return &resp, nil
}

// ForgotPassword never reveals whether the email exists; unknown
// addresses are a silent no-op.
func (s *accountService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	s.tokens.Set(token, account.Email, resetTokenTTL)

	if s.mailer == nil {
		log.Printf("accounts: no mailer configured, reset token for %s dropped", email)
		return nil
	}
	if err := s.mailer.SendPasswordResetMail(account.Email, token); err != nil {
		log.Printf("accounts: reset mail to %s failed: %v", email, err)
	}
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, req request_models.ResetPasswordRequest) error {
	email := s.tokens.Consume(req.Token)
	if email == "" {
		return fmt.Errorf("%w: reset token invalid or expired", utils.ErrValidation)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return fmt.Errorf("%w: account for reset token", utils.ErrRecordNotFound)
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID.String(), hash); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (s *accountService) ListAccounts(ctx context.Context, page, pageSize int) ([]response_models.AccountResponse, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, utils.ErrInvalidPageSize
	}

	accounts, err := s.accounts.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	out := make([]response_models.AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, response_models.NewAccountResponse(&accounts[i]))
	}
	return out, nil
}
