package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"idx_sync/models"
)

const (
	EnvDev  = "dev"
	EnvLive = "live"
)

type Config struct {
	Env         string
	Database    DatabaseConfig
	Sync        SyncConfig
	Archive     ArchiveConfig
	Feed        *FeedConfig
	JournalPath string
	LogPath     string
	LogLevel    string
	LogFormat   string
	Schedule    string

	schedule cron.Schedule
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

type SyncConfig struct {
	UpsertAttempts int
	RetryDelay     time.Duration
}

// ArchiveConfig is optional; an empty Bucket disables extract archiving
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// FeedConfig describes the upstream extract contract and the static tables
// the transformer depends on.
type FeedConfig struct {
	Dir              string                        `yaml:"dir"`
	Extracts         map[models.ListingType]string `yaml:"extracts" validate:"required,min=1,dive,required"`
	OpenHouses       string                        `yaml:"open_houses" validate:"required"`
	VirtualTours     string                        `yaml:"virtual_tours" validate:"required"`
	Hashtags         string                        `yaml:"hashtags" validate:"required"`
	PhotoURLTemplate string                        `yaml:"photo_url_template" validate:"required,contains={id},contains={n}"`
	VideoHosts       []string                      `yaml:"video_hosts" validate:"required,min=1,dive,required"`
	StyleCodes       map[string]string             `yaml:"style_codes"`
	Workers          int                           `yaml:"workers" validate:"min=1,max=500"`
	LookaheadDays    int                           `yaml:"lookahead_days" validate:"min=1"`
	RetiredStatus    string                        `yaml:"retired_status" validate:"required"`
	Table            string                        `yaml:"table" validate:"required"`
	Timezone         string                        `yaml:"timezone" validate:"required,timezone"`
}

// DefaultFeedConfig matches the MLS PIN IDX drop the uploader was built for
func DefaultFeedConfig() *FeedConfig {
	return &FeedConfig{
		Dir: ".",
		Extracts: map[models.ListingType]string{
			models.ListingTypeSingleFamily: "idx_sf.txt",
			models.ListingTypeMultiFamily:  "idx_mf.txt",
			models.ListingTypeCondo:        "idx_cc.txt",
		},
		OpenHouses:       "idx_OH.txt",
		VirtualTours:     "idx_VT.txt",
		Hashtags:         "hashtags.txt",
		PhotoURLTemplate: "https://idx.mlspin.com/photo/photo.aspx?nopadding=1&mls={id}&n={n}",
		VideoHosts:       []string{"facebook.com", "fb.com", "matterport.com", "youtu", "zoom.us"},
		StyleCodes:       map[string]string{},
		Workers:          20,
		LookaheadDays:    7,
		RetiredStatus:    "RT-ACT",
		Table:            "listings",
		Timezone:         "America/New_York",
	}
}

// Load resolves the run configuration for env ("dev" or "live"). Any
// missing or invalid parameter yields a *models.ConfigError.
func Load(env, feedPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: env,
		Database: DatabaseConfig{
			MaxConns: int32(getEnvInt("IDX_DB_MAX_CONNS", 50)),
			MinConns: int32(getEnvInt("IDX_DB_MIN_CONNS", 20)),
		},
		Sync: SyncConfig{
			UpsertAttempts: getEnvInt("IDX_UPSERT_ATTEMPTS", 1),
			RetryDelay:     getEnvDuration("IDX_RETRY_DELAY", 500*time.Millisecond),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("IDX_ARCHIVE_BUCKET"),
			Region:          getEnv("IDX_ARCHIVE_REGION", "us-east-1"),
			Endpoint:        os.Getenv("IDX_ARCHIVE_ENDPOINT"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		JournalPath: getEnv("IDX_JOURNAL_PATH", "idx_sync.db"),
		LogPath:     getEnv("IDX_LOG_PATH", "idx_sync.log"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
		Schedule:    os.Getenv("IDX_SCHEDULE"),
	}

	switch env {
	case EnvDev:
		cfg.Database.URL = os.Getenv("IDX_DEV_DATABASE_URL")
	case EnvLive:
		cfg.Database.URL = os.Getenv("IDX_LIVE_DATABASE_URL")
	case "":
		return nil, &models.ConfigError{Key: "db", Reason: "environment selector is required (dev or live)"}
	default:
		return nil, &models.ConfigError{Key: "db", Reason: fmt.Sprintf("unknown environment %q", env)}
	}
	if cfg.Database.URL == "" {
		return nil, &models.ConfigError{
			Key:    fmt.Sprintf("IDX_%s_DATABASE_URL", strings.ToUpper(env)),
			Reason: "not set",
		}
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns {
		cfg.Database.MinConns = cfg.Database.MaxConns
	}
	if cfg.Sync.UpsertAttempts < 1 {
		cfg.Sync.UpsertAttempts = 1
	}

	if cfg.Schedule != "" {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, &models.ConfigError{Key: "IDX_SCHEDULE", Reason: err.Error()}
		}
		cfg.schedule = sched
	}

	feed, err := LoadFeed(feedPath)
	if err != nil {
		return nil, err
	}
	cfg.Feed = feed

	return cfg, nil
}

// LoadFeed reads the feed file over the defaults. A missing file keeps the
// defaults.
func LoadFeed(path string) (*FeedConfig, error) {
	feed := DefaultFeedConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, feed); err != nil {
			return nil, &models.ConfigError{Key: path, Reason: err.Error()}
		}
	case os.IsNotExist(err):
	default:
		return nil, &models.ConfigError{Key: path, Reason: err.Error()}
	}

	if err := feed.Validate(); err != nil {
		return nil, err
	}
	return feed, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the feed file against its contract
func (f *FeedConfig) Validate() error {
	if err := validate.Struct(f); err != nil {
		return &models.ConfigError{Key: "feed", Reason: err.Error()}
	}
	for t := range f.Extracts {
		if !t.Valid() {
			return &models.ConfigError{Key: "feed.extracts", Reason: fmt.Sprintf("unknown listing type %q", t)}
		}
	}
	return nil
}

// Path resolves a feed file name against the feed directory
func (f *FeedConfig) Path(name string) string {
	if filepath.IsAbs(name) || f.Dir == "" {
		return name
	}
	return filepath.Join(f.Dir, name)
}

// Files lists every extract a run reads, listing types in processing order
// then the reference extracts.
func (f *FeedConfig) Files() []string {
	var files []string
	for _, t := range models.ListingTypes {
		if name, ok := f.Extracts[t]; ok {
			files = append(files, f.Path(name))
		}
	}
	return append(files, f.Path(f.OpenHouses), f.Path(f.VirtualTours))
}

// Location is the time zone extract timestamps are written in
func (f *FeedConfig) Location() *time.Location {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Lookahead is the window an open house must end within to count as soon
func (f *FeedConfig) Lookahead() time.Duration {
	return time.Duration(f.LookaheadDays) * 24 * time.Hour
}

// NextRun reports when the external scheduler is expected to start the next
// run, or nil when no schedule is configured.
func (c *Config) NextRun(after time.Time) *time.Time {
	if c.schedule == nil {
		return nil
	}
	next := c.schedule.Next(after)
	return &next
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
