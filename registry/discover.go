package registry

import (
	"context"
	"sort"
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/transcript"
)

// Discovered is one session found on disk together with its messages.
type Discovered struct {
	Meta     models.SessionMeta
	Messages []models.Message
}

// Discover summarizes every transcript across the buckets, newest first.
// Transcripts that cannot be read are skipped.
func (r *Registry) Discover(ctx context.Context) ([]models.SessionMeta, error) {
	files, err := r.transcripts.List()
	if err != nil {
		return nil, err
	}

	metas := make([]models.SessionMeta, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, err := r.describe(ctx, f)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Path).Msg("skipping unreadable transcript")
			continue
		}
		metas = append(metas, meta)
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].LastUpdated.After(metas[j].LastUpdated)
	})
	return metas, nil
}

// describe reads the first and last records of one transcript.
func (r *Registry) describe(ctx context.Context, f transcript.File) (models.SessionMeta, error) {
	sum, err := transcript.Summarize(f.Path)
	if err != nil {
		return models.SessionMeta{}, err
	}

	meta := models.SessionMeta{
		SessionID:    f.SessionID,
		Title:        transcript.TitleFromRecord(sum.First),
		CreatedAt:    f.ModTime,
		LastUpdated:  f.ModTime,
		MessageCount: sum.UserLines,
		HasTodos:     r.tasks.Exists(f.SessionID),
		ProjectGroup: f.Group,
		Path:         f.Path,
	}
	if sum.CustomTitle != "" {
		meta.Title = sum.CustomTitle
	}
	if sum.First != nil {
		if t, ok := sum.First.Time(); ok {
			meta.CreatedAt = t
		}
	}
	if sum.Last != nil {
		if t, ok := sum.Last.Time(); ok {
			meta.LastUpdated = t
		}
	}
	if meta.LastUpdated.Before(meta.CreatedAt) {
		meta.LastUpdated = meta.CreatedAt
	}

	if r.flags != nil {
		ref, err := r.flags.Find(ctx, f.SessionID)
		if err != nil {
			log.Warn().Err(err).Str("sessionId", f.SessionID).Msg("feature config lookup failed")
		}
		meta.FeatureConfigRef = ref
	}
	return meta, nil
}

func (r *Registry) discoverWithMessages(ctx context.Context) ([]Discovered, error) {
	metas, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}

	found := make([]Discovered, 0, len(metas))
	for _, meta := range metas {
		records, err := transcript.ReadFile(meta.Path)
		if err != nil {
			log.Warn().Err(err).Str("sessionId", meta.SessionID).Msg("failed to read transcript messages")
			continue
		}
		found = append(found, Discovered{Meta: meta, Messages: transcript.Normalize(records)})
	}
	return found, nil
}

// Reconcile merges discovered sessions into a copy of doc and returns it.
// Existing entries keep their id and unknown fields; new sessions get the
// next id; entries that were not discovered are kept. The result is sorted
// newest first. Applying Reconcile again with the same input changes nothing.
func Reconcile(doc *history.Document, found []Discovered) *history.Document {
	out := &history.Document{
		Conversations: make([]history.Conversation, len(doc.Conversations), len(doc.Conversations)+len(found)),
		UserInfo:      doc.UserInfo,
	}
	copy(out.Conversations, doc.Conversations)

	bySession := make(map[string]int, len(out.Conversations))
	for i, c := range out.Conversations {
		if c.SessionID != "" {
			if _, dup := bySession[c.SessionID]; !dup {
				bySession[c.SessionID] = i
			}
		}
	}

	for _, d := range found {
		meta := d.Meta
		messages := d.Messages
		if messages == nil {
			messages = []models.Message{}
		}

		i, ok := bySession[meta.SessionID]
		if !ok {
			out.Conversations = append(out.Conversations, history.Conversation{
				ID:           out.NextID(),
				Title:        meta.Title,
				Timestamp:    history.FormatTime(meta.CreatedAt),
				LastUpdated:  history.FormatTime(meta.LastUpdated),
				SessionID:    meta.SessionID,
				ProjectGroup: meta.ProjectGroup,
				MessageCount: meta.MessageCount,
				Messages:     messages,
			})
			bySession[meta.SessionID] = len(out.Conversations) - 1
			continue
		}

		c := &out.Conversations[i]
		c.Title = meta.Title
		c.Timestamp = history.FormatTime(meta.CreatedAt)
		c.LastUpdated = laterOf(c.LastUpdated, meta.LastUpdated)
		c.ProjectGroup = meta.ProjectGroup
		c.MessageCount = meta.MessageCount
		c.Messages = messages
	}

	out.SortByLastUpdated()
	return out
}

// laterOf keeps last_updated from moving backwards.
func laterOf(cached string, discovered time.Time) string {
	formatted := history.FormatTime(discovered)
	if history.ParseTime(cached).After(history.ParseTime(formatted)) {
		return cached
	}
	return formatted
}
