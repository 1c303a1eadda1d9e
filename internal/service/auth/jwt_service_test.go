package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, secret string, now time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newJWTService(secret, time.Hour, func() time.Time { return now })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tests := []struct {
		name    string
		cfg     config.AuthConfig
		wantErr bool
	}{
		{name: "valid", cfg: config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60}},
		{name: "short secret", cfg: config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60}, wantErr: true},
		{name: "zero lifetime", cfg: config.AuthConfig{JWTSecret: testSecret}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution
			svc, err := NewJWTService(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel() // Enable parallel execution

	svc := newTestService(t, testSecret, fixedTime)
	operatorID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), operatorID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.OperatorID)
	assert.Equal(t, operatorID.String(), claims.Subject)
	assert.Equal(t, "screening-api", claims.Issuer)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestValidateToken(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()
	signWith := func(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		now     time.Time
		secret  string
		wantErr error
	}{
		{
			name: "valid token",
			token: func(t *testing.T) string {
				tok, err := newTestService(t, testSecret, fixedTime).GenerateToken(context.Background(), operatorID)
				require.NoError(t, err)
				return tok
			},
			now: fixedTime, secret: testSecret,
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				tok, err := newTestService(t, testSecret, fixedTime).GenerateToken(context.Background(), operatorID)
				require.NoError(t, err)
				return tok
			},
			now: fixedTime.Add(2 * time.Hour), secret: testSecret, wantErr: ErrExpiredToken,
		},
		{
			name: "within clock skew",
			token: func(t *testing.T) string {
				tok, err := newTestService(t, testSecret, fixedTime).GenerateToken(context.Background(), operatorID)
				require.NoError(t, err)
				return tok
			},
			now: fixedTime.Add(time.Hour + time.Minute), secret: testSecret,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				tok, err := newTestService(t, testSecret, fixedTime.Add(time.Hour)).GenerateToken(context.Background(), operatorID)
				require.NoError(t, err)
				return tok
			},
			now: fixedTime, secret: testSecret, wantErr: ErrTokenNotYetValid,
		},
		{
			name: "invalid signature",
			token: func(t *testing.T) string {
				tok, err := newTestService(t, testSecret, fixedTime).GenerateToken(context.Background(), operatorID)
				require.NoError(t, err)
				return tok
			},
			now: fixedTime, secret: wrongSecret, wantErr: ErrInvalidToken,
		},
		{
			name:  "malformed token",
			token: func(*testing.T) string { return "this.is.not.a.valid.jwt.token" },
			now:   fixedTime, secret: testSecret, wantErr: ErrInvalidToken,
		},
		{
			name:  "empty token",
			token: func(*testing.T) string { return "" },
			now:   fixedTime, secret: testSecret, wantErr: ErrMissingToken,
		},
		{
			name: "wrong token type",
			token: func(t *testing.T) string {
				return signWith(t, jwtCustomClaims{
					OperatorID: operatorID,
					TokenType:  "refresh",
					RegisteredClaims: jwt.RegisteredClaims{
						Issuer:    tokenIssuer,
						Subject:   operatorID.String(),
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			now: fixedTime, secret: testSecret, wantErr: ErrWrongTokenType,
		},
		{
			name: "foreign issuer",
			token: func(t *testing.T) string {
				return signWith(t, jwtCustomClaims{
					OperatorID: operatorID,
					TokenType:  tokenTypeAccess,
					RegisteredClaims: jwt.RegisteredClaims{
						Issuer:    "someone-else",
						Subject:   operatorID.String(),
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			now: fixedTime, secret: testSecret, wantErr: ErrInvalidToken,
		},
		{
			name: "subject mismatch",
			token: func(t *testing.T) string {
				return signWith(t, jwtCustomClaims{
					OperatorID: operatorID,
					TokenType:  tokenTypeAccess,
					RegisteredClaims: jwt.RegisteredClaims{
						Issuer:    tokenIssuer,
						Subject:   uuid.NewString(),
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			now: fixedTime, secret: testSecret, wantErr: ErrInvalidToken,
		},
		{
			name: "unexpected signing method",
			token: func(t *testing.T) string {
				return signWith(t, jwtCustomClaims{
					OperatorID: operatorID,
					TokenType:  tokenTypeAccess,
					RegisteredClaims: jwt.RegisteredClaims{
						Issuer:    tokenIssuer,
						Subject:   operatorID.String(),
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS512, []byte(testSecret))
			},
			now: fixedTime, secret: testSecret, wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution
			token := tt.token(t)
			claims, err := newTestService(t, tt.secret, tt.now).ValidateToken(context.Background(), token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, operatorID, claims.OperatorID)
		})
	}
}
