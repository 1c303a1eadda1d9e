package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/mocks"
	"github.com/mydudu/screening-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()

	tests := []struct {
		name           string
		authHeader     string
		token          string
		claims         *auth.Claims
		validateErr    error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer good-token",
			token:          "good-token",
			claims:         &auth.Claims{OperatorID: operatorID},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "lowercase scheme",
			authHeader:     "bearer good-token",
			token:          "good-token",
			claims:         &auth.Claims{OperatorID: operatorID},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing header",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Authorization header required",
		},
		{
			name:           "wrong scheme",
			authHeader:     "Basic abc",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization format",
		},
		{
			name:           "empty token",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization format",
		},
		{
			name:           "expired token",
			authHeader:     "Bearer old",
			token:          "old",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Token expired",
		},
		{
			name:           "wrong token type",
			authHeader:     "Bearer other",
			token:          "other",
			validateErr:    auth.ErrWrongTokenType,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid token",
		},
		{
			name:           "unexpected failure",
			authHeader:     "Bearer boom",
			token:          "boom",
			validateErr:    errors.New("key store unavailable"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Authentication error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			jwtService := &mocks.MockJWTService{Claims: tt.claims, ValidateErr: tt.validateErr}

			var captured uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured, _ = shared.OperatorIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/screenings", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, operatorID, captured)
			} else {
				var body shared.ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedError, body.Error)
				assert.NotContains(t, rr.Body.String(), "key store")
			}
			if tt.token != "" {
				assert.Equal(t, []string{tt.token}, jwtService.ValidatedTokens())
			} else {
				assert.Empty(t, jwtService.ValidatedTokens(), "no token means no validation")
			}
		})
	}
}
