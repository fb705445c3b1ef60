package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// FlexibleID accepts JSON numbers or strings. The academic API issues numeric user IDs.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}

// JWTClaims represents the access token payload shared with the academic API.
// Role is optional; tokens without it leave authorization to the API.
type JWTClaims struct {
	UserID    FlexibleID `json:"user_id"`
	Role      UserRole   `json:"role,omitempty"`
	TokenType string     `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller extracted from a token.
type Principal struct {
	UserID string
	Role   UserRole
	Token  string
}
