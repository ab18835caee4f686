package auth

import (
	"context"
	"testing"
	"time"

	"printshop-backend/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateUserToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	userID, claims, err := ValidateUserToken(signed(t, jwt.MapClaims{
		"user_id": "u1", "type": string(model.TokenTypeUser), "exp": exp,
	}, "secret"), "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "u1", claims["user_id"])

	testCases := []struct {
		name   string
		token  string
		target error
	}{
		{"類型錯誤", signed(t, jwt.MapClaims{"user_id": "u1", "type": "driver", "exp": exp}, "secret"), ErrInvalidTokenType},
		{"缺少 user_id", signed(t, jwt.MapClaims{"type": "user", "exp": exp}, "secret"), ErrMissingUserID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidateUserToken(tc.token, "secret")
			assert.ErrorIs(t, err, tc.target)
		})
	}

	_, _, err = ValidateUserToken(signed(t, jwt.MapClaims{"user_id": "u1", "type": "user", "exp": exp}, "other"), "secret")
	assert.Error(t, err)

	_, _, err = ValidateUserToken(signed(t, jwt.MapClaims{"user_id": "u1", "type": "user", "exp": time.Now().Add(-time.Hour).Unix()}, "secret"), "secret")
	assert.Error(t, err)
}

func TestUserFromContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrUserNotFound)

	ctx := context.WithValue(context.Background(), ContextKeyUser, "not a user")
	_, err = GetUserFromContext(ctx)
	assert.ErrorIs(t, err, ErrInvalidUser)

	ctx = context.WithValue(context.Background(), ContextKeyUser, &model.User{Email: "manager@shop.in"})
	assert.Equal(t, "manager@shop.in", UserEmailFromContext(ctx))
	assert.Equal(t, "", UserEmailFromContext(context.Background()))
}
