package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAccessToken(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		header string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "cookie wins over header", cookie: &http.Cookie{Name: "access_token", Value: "from-cookie"}, header: "Bearer from-header", want: "from-cookie"},
		{name: "blank cookie ignored", cookie: &http.Cookie{Name: "access_token", Value: ""}, header: "Bearer from-header", want: "from-header"},
		{name: "basic scheme rejected", header: "Basic dXNlcjpwYXNz"},
		{name: "bearer without token", header: "Bearer "},
		{name: "nothing sent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders/place", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractAccessToken(req))
		})
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret")

	t.Run("RoundTrip", func(t *testing.T) {
		raw, err := tokens.Sign(42, "customer", time.Minute)
		require.NoError(t, err)

		claims, err := tokens.Parse(raw)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, "customer", claims.Role)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := tokens.Parse("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		raw, err := NewTokens("other").Sign(42, "customer", time.Minute)
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		raw, err := tokens.Sign(42, "customer", -time.Minute)
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NonNumericSubject", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
