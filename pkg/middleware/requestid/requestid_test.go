package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"reuses caller id", "abc-123", true},
		{"mints when missing", "", false},
		{"rejects whitespace", "abc 123", false},
		{"rejects control characters", "abc\x01", false},
		{"rejects oversized", strings.Repeat("a", 129), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var fromGin, fromCtx string
			r := gin.New()
			r.Use(Middleware())
			r.GET("/", func(c *gin.Context) {
				fromGin = Value(c)
				fromCtx = FromContext(c.Request.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(headerKey, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.NotEmpty(t, fromGin)
			assert.Equal(t, fromGin, fromCtx)
			assert.Equal(t, fromGin, w.Header().Get(headerKey))
			if tc.reuse {
				assert.Equal(t, tc.header, fromGin)
			} else {
				assert.NotEqual(t, tc.header, fromGin)
			}
		})
	}
}
