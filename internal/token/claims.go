package token

import (
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Fixed issuer and audience for every token class
const (
	Issuer   = "pic-certificates-api"
	Audience = "pic-certificates-client"
)

// ResetType is the discriminator carried by password reset tokens
const ResetType = "reset"

// Payload is the identity embedded in access and refresh tokens
type Payload struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	FactoryID string      `json:"factoryId,omitempty"`
}

// Claims are the signed claims of access and refresh tokens
type Claims struct {
	UserID    int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	FactoryID string      `json:"factoryId,omitempty"`
	Type      string      `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Payload returns the identity part of the claims
func (c *Claims) Payload() Payload {
	return Payload{
		ID:        c.UserID,
		Username:  c.Username,
		Email:     c.Email,
		Role:      c.Role,
		FactoryID: c.FactoryID,
	}
}

// ResetClaims are the signed claims of password reset tokens
type ResetClaims struct {
	UserID int64  `json:"id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim, zero when absent
func (c *Claims) Expiry() time.Time {
	return expiry(c.ExpiresAt)
}

// Expiry returns the exp claim, zero when absent
func (c *ResetClaims) Expiry() time.Time {
	return expiry(c.ExpiresAt)
}

func expiry(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
