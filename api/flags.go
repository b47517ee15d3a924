package api

import (
	"github.com/gin-gonic/gin"
)

// GetSessionFlags handles GET /api/sessions/:id/flags.
// Optional ?gate=name&config=name query values are evaluated against the snapshot.
func (h *Handlers) GetSessionFlags(c *gin.Context) {
	client, err := h.app().Registry.FeatureFlags(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err, "failed to load feature flags")
		return
	}

	resp := gin.H{"snapshot": client.Snapshot()}
	if gate := c.Query("gate"); gate != "" {
		resp["gate"] = gin.H{"name": gate, "enabled": client.IsEnabled(gate, false)}
	}
	if name := c.Query("config"); name != "" {
		resp["config"] = gin.H{"name": name, "value": client.Value(name, nil)}
	}
	RespondData(c, resp)
}

// ListSnapshots handles GET /api/snapshots
func (h *Handlers) ListSnapshots(c *gin.Context) {
	files, err := h.app().Flags.ListFiles()
	if err != nil {
		respondErr(c, err, "failed to list snapshots")
		return
	}
	RespondList(c, files, nil)
}

// DeleteSnapshot handles DELETE /api/snapshots/:name
func (h *Handlers) DeleteSnapshot(c *gin.Context) {
	if err := h.app().Flags.DeleteFile(c.Request.Context(), c.Param("name")); err != nil {
		respondErr(c, err, "failed to delete snapshot")
		return
	}
	RespondNoContent(c)
}

// ClearSnapshots handles DELETE /api/snapshots
func (h *Handlers) ClearSnapshots(c *gin.Context) {
	removed, err := h.app().Flags.Clear(c.Request.Context())
	if err != nil {
		respondErr(c, err, "failed to clear snapshots")
		return
	}
	RespondData(c, gin.H{"removed": removed})
}
