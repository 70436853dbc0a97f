package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeEmptyCity, http.StatusBadRequest},
		{ErrCodeCityTooLong, http.StatusBadRequest},
		{ErrCodeCityNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeUnauthorized, http.StatusBadGateway},
		{ErrCodeMalformed, http.StatusBadGateway},
		{ErrCodeCanceled, http.StatusConflict},
		{ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAsQueryError(t *testing.T) {
	assert.Nil(t, AsQueryError(nil))

	original := NewQueryError(ErrCodeCityNotFound, nil)
	wrapped := fmt.Errorf("current: %w", original)
	assert.Same(t, original, AsQueryError(wrapped))

	assert.Equal(t, ErrCodeTimeout, AsQueryError(fmt.Errorf("x: %w", context.DeadlineExceeded)).Code)
	assert.Equal(t, ErrCodeCanceled, AsQueryError(context.Canceled).Code)
	assert.Equal(t, ErrCodeInternal, AsQueryError(errors.New("boom")).Code)
}

func TestQueryError_ErrorString(t *testing.T) {
	err := NewQueryError(ErrCodeCityNotFound, errors.New("API returned status 404"))
	assert.Equal(t, "not_found_city: city not found: API returned status 404", err.Error())
	assert.Equal(t, "validation_empty_city: enter a city name", NewQueryError(ErrCodeEmptyCity, nil).Error())
}
