package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

var errNoChange = errors.New("no change")

// UserInfo returns the remembered user memory.
func (r *Registry) UserInfo(ctx context.Context) (models.UserInfo, error) {
	doc, err := r.history.Load()
	if err != nil {
		return models.UserInfo{}, err
	}
	return doc.UserInfo, nil
}

// SetUserName stores an explicit name. A blank name clears it.
func (r *Registry) SetUserName(ctx context.Context, name string) (models.UserInfo, error) {
	name = strings.TrimSpace(name)
	return r.UpdateUserInfo(ctx, func(info *models.UserInfo) bool {
		if name == "" {
			if info.UserName == nil {
				return false
			}
			info.UserName = nil
			return true
		}
		if info.Name() == name {
			return false
		}
		info.UserName = &name
		return true
	})
}

// UpdateUserInfo applies fn to the stored memory. The cache is only
// rewritten when fn reports a change.
func (r *Registry) UpdateUserInfo(ctx context.Context, fn func(*models.UserInfo) bool) (models.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.history.Update(func(doc *history.Document) error {
		if !fn(&doc.UserInfo) {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return r.UserInfo(ctx)
	}
	if err != nil {
		return models.UserInfo{}, err
	}
	return doc.UserInfo, nil
}
