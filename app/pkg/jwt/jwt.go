// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package jwt provides helpers for generating and parsing signed user tokens
// used as the x-jwt credential form (§4.7).
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leoscope/leoscope/app"
	usermodel "github.com/leoscope/leoscope/app/model/user"
)

// UserClaims carries the identity fields the authentication gate needs to
// resolve (caller_id, caller_role) without a second database round trip.
type UserClaims struct {
	UserID string        `json:"user_id"`
	Role   usermodel.Role `json:"role"`
	Team   string        `json:"team"`
	jwt.RegisteredClaims
}

// GenerateUserToken creates a signed JWT for an authenticated user.
//
// Parameters:
//   - u: authenticated user entity used to fill token claims.
//   - expire: token expiration duration in seconds.
//
// Returns:
//   - token: signed JWT string.
//   - err: signing error.
func GenerateUserToken(u *usermodel.User, expire time.Duration) (token string, err error) {
	expTime := time.Now().Add(expire * time.Second)
	claims := UserClaims{
		UserID: u.ID,
		Role:   u.Role,
		Team:   u.Team,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "leoscope",
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(app.GetConfig().System.JwtSecret)

	return tokenClaims.SignedString(jwtSecret)
}

// ParseUserToken parses and validates a signed user JWT token.
//
// Parameters:
//   - token: JWT string from the x-jwt request header.
//
// Returns:
//   - *UserClaims: parsed claims when the token is valid.
//   - error: parsing or signature validation error.
func ParseUserToken(token string) (*UserClaims, error) {
	jwtSecret := []byte(app.GetConfig().System.JwtSecret)

	tokenClaims, err := jwt.ParseWithClaims(token, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	})

	if tokenClaims != nil {
		if claims, ok := tokenClaims.Claims.(*UserClaims); ok && tokenClaims.Valid {
			return claims, nil
		}
	}

	return nil, err
}
