package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"freakfest/internal/artists"
	"freakfest/internal/manifest"
	"freakfest/internal/media"
	"freakfest/pkg/database"
)

// DefaultConfigPath is read when FREAKFEST_CONFIG is unset.
const DefaultConfigPath = "freakfest.yaml"

type Config struct {
	Addr      string `yaml:"addr"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	PublicDir string `yaml:"public_dir"`
	DBPath    string `yaml:"db_path"`

	Media   MediaConfig   `yaml:"media"`
	Sheet   SheetConfig   `yaml:"sheet"`
	Artists ArtistsConfig `yaml:"artists"`
	Flyers  FlyersConfig  `yaml:"flyers"`
	Gallery GalleryConfig `yaml:"gallery"`
	Auth    AuthConfig    `yaml:"auth"`
}

type MediaConfig struct {
	ReleaseBase string         `yaml:"release_base"`
	ReleaseTag  string         `yaml:"release_tag"`
	SyncOnStart *bool          `yaml:"sync_on_start"`
	Targets     []TargetConfig `yaml:"targets"`
}

type TargetConfig struct {
	Name    string `yaml:"name"`
	Dir     string `yaml:"dir"`
	Archive string `yaml:"archive"`
	Strip   int    `yaml:"strip"`
	Kind    string `yaml:"kind"` // "files" or "images"
	Slots   bool   `yaml:"slots"`
}

type SheetConfig struct {
	Base string `yaml:"base"`
	ID   string `yaml:"id"`
	GID  string `yaml:"gid"`
}

type ArtistsConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// FlyersConfig holds the flyer running order. SlotsFile, when set, wins
// over inline Slots.
type FlyersConfig struct {
	SlotsFile string              `yaml:"slots_file"`
	Slots     []manifest.SlotSpec `yaml:"slots"`
}

type GalleryConfig struct {
	ThumbCacheDir string `yaml:"thumb_cache_dir"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	JWTIssuer         string        `yaml:"jwt_issuer"`
	JWTDuration       time.Duration `yaml:"jwt_ttl"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
}

// LoadConfig reads the optional YAML file at path (FREAKFEST_CONFIG or
// freakfest.yaml when empty), applies environment overrides and fills in
// defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		if p := os.Getenv("FREAKFEST_CONFIG"); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultConfigPath
		}
	}

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "FREAKFEST_ADDR")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FREAKFEST_ADDR") == "" {
		c.Addr = ":" + port
	}
	setString(&c.Env, "FREAKFEST_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.PublicDir, "FREAKFEST_PUBLIC_DIR")
	setString(&c.DBPath, "FREAKFEST_DB_PATH")

	setString(&c.Media.ReleaseBase, "MEDIA_RELEASE_BASE")
	setString(&c.Media.ReleaseTag, "MEDIA_RELEASE_TAG")
	if v := os.Getenv("MEDIA_SYNC_ON_START"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse MEDIA_SYNC_ON_START: %w", err)
		}
		c.Media.SyncOnStart = &on
	}

	setString(&c.Sheet.ID, "SHEET_ID")
	setString(&c.Sheet.GID, "SHEET_GID")
	if v := os.Getenv("ARTISTS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ARTISTS_TTL: %w", err)
		}
		c.Artists.TTL = d
	}
	setString(&c.Flyers.SlotsFile, "FLYER_SLOTS_FILE")
	setString(&c.Gallery.ThumbCacheDir, "GALLERY_THUMB_CACHE_DIR")

	setString(&c.Auth.JWTSecret, "FREAKFEST_JWT_SECRET")
	setString(&c.Auth.JWTIssuer, "FREAKFEST_JWT_ISSUER")
	setString(&c.Auth.AdminPasswordHash, "FREAKFEST_ADMIN_PASSWORD_HASH")
	if v := os.Getenv("FREAKFEST_JWT_TTL_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FREAKFEST_JWT_TTL_HOURS: %w", err)
		}
		c.Auth.JWTDuration = time.Duration(h) * time.Hour
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PublicDir == "" {
		c.PublicDir = filepath.Join("dist", "public")
	}
	if c.DBPath == "" {
		c.DBPath = database.DefaultConfig().Path
	}
	if c.Media.ReleaseBase == "" {
		c.Media.ReleaseBase = media.DefaultReleaseBase
	}
	if c.Media.ReleaseTag == "" {
		c.Media.ReleaseTag = media.DefaultReleaseTag
	}
	if c.Sheet.Base == "" {
		c.Sheet.Base = artists.DefaultSheetBase
	}
	if c.Sheet.ID == "" {
		c.Sheet.ID = artists.DefaultSheetID
	}
	if c.Sheet.GID == "" {
		c.Sheet.GID = artists.DefaultSheetGID
	}
	if c.Artists.TTL == 0 {
		c.Artists.TTL = artists.DefaultTTL
	}
	if c.Auth.JWTSecret == "" {
		// dev default (change for production)
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "freakfest"
	}
	if c.Auth.JWTDuration == 0 {
		c.Auth.JWTDuration = 24 * time.Hour
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AssetsDir is where media archives are unpacked and static assets served from.
func (c Config) AssetsDir() string {
	return filepath.Join(c.PublicDir, "assets")
}

// SyncMediaOnStart defaults to true.
func (c Config) SyncMediaOnStart() bool {
	return c.Media.SyncOnStart == nil || *c.Media.SyncOnStart
}

// Validate checks values LoadConfig cannot default away.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Media.ReleaseBase); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("media.release_base %q is not an http(s) URL", c.Media.ReleaseBase))
	}
	if u, err := url.Parse(c.Sheet.Base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("sheet.base %q is not an http(s) URL", c.Sheet.Base))
	}
	if c.Artists.TTL < 0 {
		errs = append(errs, errors.New("artists.ttl must not be negative"))
	}
	if c.Auth.JWTDuration < 0 {
		errs = append(errs, errors.New("auth.jwt_ttl must not be negative"))
	}
	if c.IsProduction() && c.Auth.AdminPasswordHash != "" && c.Auth.JWTSecret == "dev-secret-change-me" {
		errs = append(errs, errors.New("auth.jwt_secret must be set in production when admin login is enabled"))
	}
	if _, err := c.MediaTargets(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.FlyerSlots(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// MediaTargets returns the configured targets or media.DefaultTargets.
func (c Config) MediaTargets() ([]media.Target, error) {
	if len(c.Media.Targets) == 0 {
		return media.DefaultTargets(), nil
	}
	out := make([]media.Target, 0, len(c.Media.Targets))
	seen := make(map[string]bool, len(c.Media.Targets))
	for i, t := range c.Media.Targets {
		if t.Name == "" || t.Dir == "" || t.Archive == "" {
			return nil, fmt.Errorf("media.targets[%d]: name, dir and archive are required", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("media.targets[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = true
		if t.Strip < 0 {
			return nil, fmt.Errorf("media.targets[%d]: strip must not be negative", i)
		}
		kind := manifest.Kind(t.Kind)
		switch kind {
		case "":
			kind = manifest.KindGallery
		case manifest.KindFlyers, manifest.KindGallery:
		default:
			return nil, fmt.Errorf("media.targets[%d]: unknown kind %q", i, t.Kind)
		}
		out = append(out, media.Target{
			Name:     t.Name,
			Dir:      filepath.ToSlash(t.Dir),
			Archive:  t.Archive,
			Strip:    t.Strip,
			Kind:     kind,
			UseSlots: t.Slots,
		})
	}
	return out, nil
}

// FlyerSlots loads and compiles the flyer running order, falling back to
// manifest.DefaultFlyerSlots.
func (c Config) FlyerSlots() ([]manifest.Slot, error) {
	specs := c.Flyers.Slots
	if c.Flyers.SlotsFile != "" {
		s, err := manifest.LoadSlotFile(c.Flyers.SlotsFile)
		if err != nil {
			return nil, err
		}
		specs = s
	}
	if len(specs) == 0 {
		specs = manifest.DefaultFlyerSlots()
	}
	slots, err := manifest.CompileSlots(specs)
	if err != nil {
		return nil, fmt.Errorf("flyer slots: %w", err)
	}
	return slots, nil
}
