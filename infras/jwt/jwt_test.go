package jwt_test

import (
	"context"
	"testing"
	"time"

	"carrental/config"
	"carrental/infras/jwt"
	"carrental/infras/otel/mocks"
	"carrental/shared/constant"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "access-secret"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return token
}

func newClaims(expiresAt time.Time, tokenType jwt.TokenType) jwt.Claims {
	return jwt.Claims{
		UserID:  "user-1",
		Email:   "renter@example.com",
		Role:    constant.RoleUser,
		TokenID: "token-1",
		Type:    tokenType,
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
			Issuer:    "identity",
		},
	}
}

func TestService_ValidateToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = testSecret
	cfg.JWT.Issuer = "identity"

	svc := jwt.New(cfg, mocks.NewOtel())
	ctx := context.Background()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "valid access token",
			token: signToken(t, testSecret, newClaims(time.Now().Add(time.Hour), jwt.AccessToken)),
		},
		{
			name:    "expired token",
			token:   signToken(t, testSecret, newClaims(time.Now().Add(-time.Hour), jwt.AccessToken)),
			wantErr: jwt.ErrExpiredToken,
		},
		{
			name:    "wrong secret",
			token:   signToken(t, "other", newClaims(time.Now().Add(time.Hour), jwt.AccessToken)),
			wantErr: jwt.ErrInvalidToken,
		},
		{
			name:    "wrong token type",
			token:   signToken(t, testSecret, newClaims(time.Now().Add(time.Hour), "refresh")),
			wantErr: jwt.ErrInvalidClaim,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: jwt.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(ctx, tt.token, jwt.AccessToken)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.UserID)
			assert.Equal(t, constant.RoleUser, claims.Role)
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := jwt.ExtractTokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = jwt.ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = jwt.ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)
}
