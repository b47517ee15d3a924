package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

// GetUserInfo handles GET /api/user
func (h *Handlers) GetUserInfo(c *gin.Context) {
	info, err := h.app().Registry.UserInfo(c.Request.Context())
	if err != nil {
		respondErr(c, err, "failed to load user memory")
		return
	}
	RespondData(c, info)
}

// UpdateUserInfo handles PUT /api/user. Absent fields are left alone; a
// null user_name clears the name.
func (h *Handlers) UpdateUserInfo(c *gin.Context) {
	var body struct {
		UserName    *string           `json:"user_name"`
		ClearName   bool              `json:"clear_name"`
		Preferences map[string]string `json:"preferences"`
		Context     map[string]any    `json:"context"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	info, err := h.app().Registry.UpdateUserInfo(c.Request.Context(), func(u *models.UserInfo) bool {
		if body.ClearName {
			u.UserName = nil
		} else if body.UserName != nil {
			name := *body.UserName
			u.UserName = &name
		}
		if body.Preferences != nil {
			u.Preferences = body.Preferences
		}
		if body.Context != nil {
			u.Context = body.Context
		}
		return true
	})
	if err != nil {
		respondErr(c, err, "failed to save user memory")
		return
	}
	h.notify().NotifyUserChanged()
	RespondData(c, info)
}
