package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(consoleWriter())
		SetLevel("info")
	})
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestModuleLoggerFollowsOutputAndLevel(t *testing.T) {
	early := GetLogger("Early")
	buf := capture(t, "warn")

	early.Info().Msg("hidden")
	early.Warn().Msg("shown")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
	assert.Equal(t, "Early", got[0]["module"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLogLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLogLevel("warning").String())
	assert.Equal(t, "info", parseLogLevel("nonsense").String())
}

func TestGinLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := capture(t, "info")

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/api/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PATCH("/api/sessions/:id/tasks/:taskId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/sessions", nil),
		httptest.NewRequest(http.MethodPatch, "/api/sessions/s1/tasks/t1", nil),
		httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := lines(t, buf)
	require.Len(t, got, 2, "successful reads stay at debug")

	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, "s1", got[0]["sessionId"])
	assert.Equal(t, "t1", got[0]["taskId"])

	assert.Equal(t, "warn", got[1]["level"])
	assert.Equal(t, float64(http.StatusNotFound), got[1]["status"])
}
