package app

import (
	"github.com/xiaoyuanzhu-com/claudechat/chat"
	"github.com/xiaoyuanzhu-com/claudechat/claude"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/db"
	"github.com/xiaoyuanzhu-com/claudechat/export"
	"github.com/xiaoyuanzhu-com/claudechat/featureconfig"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/memory"
	"github.com/xiaoyuanzhu-com/claudechat/registry"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
	"github.com/xiaoyuanzhu-com/claudechat/transcript"
)

// App owns every component. The CLI and the HTTP server both build one.
type App struct {
	Config *config.Config

	database    *db.DB
	Transcripts *transcript.Store
	Tasks       *tasks.Store
	Flags       *featureconfig.Store
	History     *history.Store
	Registry    *registry.Registry
	Claude      *claude.Client
	Memory      *memory.PatternExtractor
	Chat        *chat.Service
	Exporter    *export.Exporter
}

// Open initializes all components for cfg. A database that cannot be
// opened only disables the snapshot index; lookups fall back to scanning.
func Open(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var index featureconfig.Index
	database, err := db.Open(db.DefaultConfig(cfg.DatabasePath))
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DatabasePath).Msg("snapshot index unavailable, scanning snapshots instead")
	} else {
		a.database = database
		index = db.NewSnapshotIndex(database)
	}

	a.Transcripts = transcript.NewStore(cfg)
	a.Tasks = tasks.NewStore(cfg)
	a.Flags = featureconfig.NewStore(cfg, index)
	a.History = history.NewStore(cfg)
	a.Registry = registry.New(a.Transcripts, a.Tasks, a.Flags, a.History)

	a.Claude = claude.NewClient(claude.Options{
		Path:    cfg.ClaudePath,
		Timeout: cfg.ClaudeTimeout,
	})
	a.Memory = memory.ForLocale(cfg.MemoryLocale)
	a.Chat = chat.NewService(a.Claude, a.Registry, a.Memory)
	a.Exporter = export.New(a.Transcripts, a.Tasks, cfg.HistoryPath)

	log.Debug().
		Str("claudeDir", cfg.ClaudeDir).
		Str("locale", a.Memory.Locale().Name).
		Msg("components initialized")
	return a, nil
}

// DB returns the local database, or nil when it could not be opened.
func (a *App) DB() *db.DB {
	return a.database
}

// Close releases the database.
func (a *App) Close() error {
	if a.database == nil {
		return nil
	}
	return a.database.Close()
}
