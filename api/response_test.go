package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/xiaoyuanzhu-com/claudechat/claude"
	"github.com/xiaoyuanzhu-com/claudechat/registry"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, page := paginate(items, 2, 1)
	assert.Equal(t, []int{2, 3}, got)
	assert.True(t, page.HasMore)
	assert.Equal(t, 5, page.Total)

	got, page = paginate(items, 0, 3)
	assert.Equal(t, []int{4, 5}, got)
	assert.False(t, page.HasMore)

	got, page = paginate(items, 2, 9)
	assert.Empty(t, got)
	assert.Equal(t, 5, page.Offset)
}

func TestRespondErrStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lookup: %w", registry.ErrSessionNotFound), http.StatusNotFound},
		{registry.ErrEmptyTitle, http.StatusBadRequest},
		{fmt.Errorf("%w: content is empty", tasks.ErrInvalidTask), http.StatusBadRequest},
		{claude.ErrTimeout, http.StatusGatewayTimeout},
		{claude.ErrEmptyOutput, http.StatusBadGateway},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondErr(c, tc.err, "failed")
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}
