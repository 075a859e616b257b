package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("compare: %w", NewInvalidRecipeError("ingredient %q appears twice", "flour"))

	assert.True(t, errors.Is(err, ErrInvalidRecipe))
	assert.False(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Contains(t, err.Error(), "flour")
}

func TestCustomError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewQuotaStoreUnavailableError(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrQuotaStoreUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
}

func TestAsCustomError(t *testing.T) {
	plain := errors.New("boom")
	ce := AsCustomError(plain)
	assert.Equal(t, ErrCodeInternalError, ce.Code)
	assert.Equal(t, http.StatusInternalServerError, ce.Status)
	assert.Equal(t, "boom", ce.Response().Details)

	exceeded := NewQuotaExceededError("u1", 5)
	assert.Same(t, exceeded, AsCustomError(exceeded))
	assert.Equal(t, ErrCodeQuotaExceeded, exceeded.Response().Code)
}

func TestDecodeJSONStrict(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"flour"}`},
		{name: "unknown field", body: `{"name":"flour","extra":1}`, wantErr: true},
		{name: "trailing data", body: `{"name":"flour"} {}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSONStrict(strings.NewReader(tt.body), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "flour", p.Name)
		})
	}
}

func TestParseJSONBytes_AllowsUnknownFields(t *testing.T) {
	var v struct {
		Count int `json:"count"`
	}
	require.NoError(t, ParseJSONBytes([]byte(`{"count":3,"day":"2025-03-14"}`), &v))
	assert.Equal(t, 3, v.Count)
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{
			dsn:  "host=localhost user=app password=secret dbname=quota",
			want: "host=localhost user=app password=**** dbname=quota",
		},
		{
			dsn:  "host=localhost password=secret",
			want: "host=localhost password=****",
		},
		{
			dsn:  "postgres://app:secret@db:5432/quota",
			want: "postgres://app:****@db:5432/quota",
		},
		{
			dsn:  "file:quota.db?cache=shared",
			want: "file:quota.db?cache=shared",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactDSN(tt.dsn))
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "abcd...wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
