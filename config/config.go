package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Bucket is a project directory under <ClaudeDir>/projects that holds transcripts.
type Bucket struct {
	Name string // Display name, used as the session's project group
	Dir  string // Directory name relative to ProjectsDir
}

// DefaultBuckets is the fixed search order for transcripts.
// New sessions are always created in the bucket at DefaultBucketIndex.
var DefaultBuckets = []Bucket{
	{Name: "Claude Direct", Dir: "-root--claude"},
	{Name: "Claude Chat", Dir: "-root--claude-claudechat"},
	{Name: "Claude App", Dir: "-root--claude-claudechat-app"},
}

// DefaultBucketIndex points at the "Claude Chat" bucket.
const DefaultBucketIndex = 1

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Claude data layout
	ClaudeDir   string
	ProjectsDir string
	TodosDir    string
	StatsigDir  string
	Buckets     []Bucket

	// Local app data (history cache, snapshot index)
	ChatDir      string
	HistoryPath  string
	DatabasePath string

	// External tool
	ClaudePath    string
	ClaudeTimeout time.Duration

	// Behavior
	LogLevel      string
	MemoryLocale  string
	WatchDebounce time.Duration

	// FileError is set when config.yaml exists but could not be read.
	// Env and defaults still apply; the caller decides whether to log it.
	FileError error
}

var (
	cfg  *Config
	once sync.Once
	v    = newViper()
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load(v)
	})
	return cfg
}

// Viper exposes the backing viper instance so the CLI can bind flags before Get is called.
func Viper() *viper.Viper {
	return v
}

func newViper() *viper.Viper {
	vp := viper.New()

	vp.SetDefault("CLAUDE_DIR", defaultClaudeDir())
	vp.SetDefault("CLAUDE_PATH", "claude")
	vp.SetDefault("CLAUDE_TIMEOUT", 90)
	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("ENV", "development")
	vp.SetDefault("HOST", "127.0.0.1")
	vp.SetDefault("PORT", 8501)
	vp.SetDefault("MEMORY_LOCALE", "pt")
	vp.SetDefault("WATCH_DEBOUNCE_MS", 250)

	vp.AutomaticEnv()
	return vp
}

// load reads configuration from environment variables and an optional config file
func load(vp *viper.Viper) *Config {
	claudeDir := vp.GetString("CLAUDE_DIR")

	// Optional config.yaml next to the history cache
	vp.SetConfigName("config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Join(claudeDir, "claudechat"))
	var fileErr error
	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fileErr = err
		}
	}
	// The config file may relocate CLAUDE_DIR
	claudeDir = vp.GetString("CLAUDE_DIR")

	c := ForClaudeDir(claudeDir)
	c.FileError = fileErr
	c.Port = vp.GetInt("PORT")
	c.Host = vp.GetString("HOST")
	c.Env = vp.GetString("ENV")
	if vp.GetBool("DEBUG_MODE") {
		c.Env = "development"
		c.LogLevel = "debug"
	} else {
		c.LogLevel = vp.GetString("LOG_LEVEL")
	}
	c.ClaudePath = vp.GetString("CLAUDE_PATH")
	c.ClaudeTimeout = time.Duration(vp.GetInt("CLAUDE_TIMEOUT")) * time.Second
	c.MemoryLocale = strings.ToLower(vp.GetString("MEMORY_LOCALE"))
	c.WatchDebounce = time.Duration(vp.GetInt("WATCH_DEBOUNCE_MS")) * time.Millisecond
	return c
}

// ForClaudeDir builds a configuration rooted at claudeDir with every other
// setting at its default. Tests use it to point the stores at a temp dir.
func ForClaudeDir(claudeDir string) *Config {
	chatDir := filepath.Join(claudeDir, "claudechat")
	dataDir := filepath.Join(chatDir, "data")

	buckets := make([]Bucket, len(DefaultBuckets))
	copy(buckets, DefaultBuckets)

	return &Config{
		Port: 8501,
		Host: "127.0.0.1",
		Env:  "development",

		ClaudeDir:   claudeDir,
		ProjectsDir: filepath.Join(claudeDir, "projects"),
		TodosDir:    filepath.Join(claudeDir, "todos"),
		StatsigDir:  filepath.Join(claudeDir, "statsig"),
		Buckets:     buckets,

		ChatDir:      chatDir,
		HistoryPath:  filepath.Join(dataDir, "chat_history.json"),
		DatabasePath: filepath.Join(dataDir, "claudechat.sqlite"),

		ClaudePath:    "claude",
		ClaudeTimeout: 90 * time.Second,

		LogLevel:      "info",
		MemoryLocale:  "pt",
		WatchDebounce: 250 * time.Millisecond,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// BucketDirs returns the absolute bucket directories in search order.
func (c *Config) BucketDirs() []string {
	dirs := make([]string, len(c.Buckets))
	for i, b := range c.Buckets {
		dirs[i] = filepath.Join(c.ProjectsDir, b.Dir)
	}
	return dirs
}

// DefaultBucketDir is where newly created transcripts are written.
func (c *Config) DefaultBucketDir() string {
	idx := DefaultBucketIndex
	if idx >= len(c.Buckets) {
		idx = 0
	}
	return filepath.Join(c.ProjectsDir, c.Buckets[idx].Dir)
}

func defaultClaudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/root/.claude"
	}
	return filepath.Join(home, ".claude")
}
