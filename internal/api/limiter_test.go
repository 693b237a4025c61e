package api

import (
	"net/http/httptest"
	"testing"

	"smiledent/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiter(t *testing.T) {
	l := newLoginLimiter(config.RateLimitConfig{LoginRPS: 0.001, LoginBurst: 2})

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	// buckets are per client
	assert.True(t, l.allow("10.0.0.2"))
}

func TestLoginLimiterDisabled(t *testing.T) {
	l := newLoginLimiter(config.RateLimitConfig{LoginRPS: -1})
	for i := 0; i < 20; i++ {
		assert.True(t, l.allow("10.0.0.1"))
	}
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientKey(r))

	r.RemoteAddr = ""
	assert.Equal(t, clientKeyUnknown, clientKey(r))
}
