package httpclient_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-catalog/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "create HTTPError with all fields",
			statusCode:    404,
			url:           "http://example.com",
			message:       "Not Found",
			expectedError: "HTTP 404 for URL http://example.com: Not Found",
		},
		{
			name:          "handle empty message",
			statusCode:    500,
			url:           "http://api.example.com/v1/data",
			message:       "",
			expectedError: "HTTP 500 for URL http://api.example.com/v1/data: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)

			assert.Equal(t, tt.expectedError, err.Error())
			assert.Equal(t, tt.statusCode, err.StatusCode)
			assert.Zero(t, err.RetryAfter)
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "empty", value: "", want: 0},
		{name: "delay seconds", value: "30", want: 30 * time.Second},
		{name: "padded seconds", value: " 5 ", want: 5 * time.Second},
		{name: "negative seconds", value: "-3", want: 0},
		{name: "http date in the future", value: "Wed, 01 Jan 2025 12:01:00 GMT", want: time.Minute},
		{name: "http date in the past", value: "Wed, 01 Jan 2025 11:00:00 GMT", want: 0},
		{name: "garbage", value: "soon", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, httpclient.ParseRetryAfter(tt.value, now))
		})
	}
}
