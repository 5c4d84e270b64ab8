package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT minted by the identity service.
// Merchant tokens carry the establishment they operate.
type AccessTokenClaims struct {
	UserID          uuid.UUID       `json:"user_id"`
	EstablishmentID *uuid.UUID      `json:"establishment_id,omitempty"`
	Role            enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
