package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 20, Offset: 0}},
		{"?page=3&limit=10", Params{Page: 3, Limit: 10, Offset: 20}},
		{"?page=0&limit=500", Params{Page: 1, Limit: 100, Offset: 0}},
		{"?page=abc&limit=-4", Params{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/items"+tt.query, nil)
			assert.Equal(t, tt.want, Parse(c))
		})
	}
}

func TestMeta(t *testing.T) {
	p := New(2, 20)
	assert.Equal(t, Meta{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, p.Meta(41))
	assert.Equal(t, 0, p.Meta(0).TotalPages)
}
