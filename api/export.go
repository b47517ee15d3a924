package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/export"
	"github.com/xiaoyuanzhu-com/claudechat/utils"
)

// ExportSession handles GET /api/sessions/:id/export?format=json|markdown|tar
func (h *Handlers) ExportSession(c *gin.Context) {
	key := c.Param("id")
	conv, err := h.app().Registry.Conversation(c.Request.Context(), key)
	if err != nil {
		respondErr(c, err, "failed to load session")
		return
	}
	base := utils.SanitizeFilename(conv.Title)

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, base))
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)
		if err := export.JSON(c.Writer, conv); err != nil {
			apiLogger.Error().Err(err).Msg("failed to write export")
		}
	case "markdown", "md":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.md"`, base))
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(export.Markdown(conv)))
	case "tar":
		if conv.SessionID == "" {
			RespondBadRequest(c, "session has no transcript to archive")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.tar.gz"`, base))
		c.Header("Content-Type", "application/gzip")
		c.Status(http.StatusOK)
		if _, err := h.app().Exporter.Backup(c.Request.Context(), c.Writer, conv.SessionID); err != nil {
			apiLogger.Error().Err(err).Str("sessionId", conv.SessionID).Msg("failed to write archive")
		}
	default:
		RespondValidationError(c, "invalid format", fieldError("format", "must be json, markdown or tar"))
	}
}

// ExportAll handles GET /api/export: a tar.gz of every store
func (h *Handlers) ExportAll(c *gin.Context) {
	name := fmt.Sprintf("claudechat-%s.tar.gz", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Header("Content-Type", "application/gzip")
	c.Status(http.StatusOK)
	if _, err := h.app().Exporter.Backup(c.Request.Context(), c.Writer); err != nil {
		apiLogger.Error().Err(err).Msg("failed to write backup")
	}
}
