package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/timmy/bucketgate/internal/config"
	"github.com/timmy/bucketgate/internal/logger"
)

func newEngine(cors config.CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoggerMiddleware(nil))
	r.Use(CORS(cors))
	r.GET("/buckets/:bucket", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": logger.GetRequestID(c.Request.Context()),
			"same":       GetLogger(c) == logger.FromContext(c.Request.Context()),
		})
	})
	return r
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		cfg    config.CORSConfig
		want   bool
	}{
		{"allow all", "https://a.example", config.CORSConfig{AllowAllOrigins: true}, true},
		{"listed", "https://A.example", config.CORSConfig{AllowedOrigins: []string{"https://a.example"}}, true},
		{"wildcard entry", "https://b.example", config.CORSConfig{AllowedOrigins: []string{"*"}}, true},
		{"not listed", "https://b.example", config.CORSConfig{AllowedOrigins: []string{"https://a.example"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOriginAllowed(tt.origin, tt.cfg))
		})
	}
}

func TestCORS_RejectedOriginGetsNoHeaders(t *testing.T) {
	r := newEngine(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	req := httptest.NewRequest(http.MethodGet, "/buckets/photos", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowAll(t *testing.T) {
	r := newEngine(config.CORSConfig{AllowAllOrigins: true})

	req := httptest.NewRequest(http.MethodGet, "/buckets/photos", nil)
	req.Header.Set("Origin", "https://a.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "false", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestLoggerMiddleware_InjectsRequestID(t *testing.T) {
	r := newEngine(config.CORSConfig{})

	req := httptest.NewRequest(http.MethodGet, "/buckets/photos", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"request_id":"abc","same":true}`, w.Body.String())
}
