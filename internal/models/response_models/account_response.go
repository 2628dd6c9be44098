package response_models

import "alignbill/internal/models/db_models"

type AccountLoginResponse struct {
	Token string `json:"token"`
}

type AccountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
}

func NewAccountResponse(a *db_models.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}
