// Package profile implements the two-tier SyntheticProfile store: Redis as
// the primary, swarm-shared backing store, with a filesystem JSON snapshot
// as fallback and mirror. A profile "grafts" a lived-in identity onto a
// freshly-launched session instead of presenting a burner browser.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/chimera/models"
)

const redisTTL = 30 * 24 * time.Hour

// Store holds the active profile set in memory, synced from Redis (if
// configured) or a filesystem snapshot, and rotates through profiles for
// callers that don't request one by id.
type Store struct {
	mu             sync.Mutex
	profiles       map[string]*SyntheticProfile
	order          []string
	rotationCursor int

	profilesDir string
	redis       *redis.Client
}

// Options configures a new Store.
type Options struct {
	ProfilesDir string
	RedisURL    string // empty disables the Redis tier
}

// NewStore creates the profiles directory, connects to Redis if configured,
// and loads the active profile set (Redis, then filesystem, then defaults).
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.ProfilesDir == "" {
		opts.ProfilesDir = "./chimera-profiles"
	}
	if err := os.MkdirAll(opts.ProfilesDir, 0o755); err != nil {
		return nil, models.NewAgentError(models.ErrCodeInternal, "failed to create profiles directory", err)
	}

	s := &Store{
		profiles:    make(map[string]*SyntheticProfile),
		profilesDir: opts.ProfilesDir,
	}

	if opts.RedisURL != "" {
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			slog.Warn("profile: invalid redis url, disabling redis tier", "error", err)
		} else {
			s.redis = redis.NewClient(redisOpts)
		}
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if err := s.loadSeedFile(ctx); err != nil {
		slog.Warn("profile: failed to load seed file (non-fatal)", "error", err)
	}
	return s, nil
}

// load populates the in-memory set: Redis first (if configured and
// non-empty), else the filesystem snapshot, else a freshly-created default
// set written through both tiers.
func (s *Store) load(ctx context.Context) error {
	if s.redis != nil {
		n, err := s.loadFromRedis(ctx)
		if err != nil {
			slog.Warn("profile: failed to load from redis, falling back to filesystem", "error", err)
		} else if n > 0 {
			slog.Info("profile: loaded profiles from redis", "count", n)
			return nil
		}
	}

	snapshotPath := filepath.Join(s.profilesDir, "profiles.json")
	if data, err := os.ReadFile(snapshotPath); err == nil {
		var list []*SyntheticProfile
		if err := json.Unmarshal(data, &list); err != nil {
			slog.Warn("profile: failed to parse snapshot, creating defaults", "error", err)
		} else {
			for _, p := range list {
				s.profiles[p.ID] = p
				s.order = append(s.order, p.ID)
			}
			slog.Info("profile: loaded profiles from filesystem snapshot", "count", len(list))
			return nil
		}
	}

	return s.createDefaultProfiles(ctx)
}

// seedDescriptor is one entry of an optional operator-authored YAML file
// describing additional synthetic identities to graft into the pool. It
// carries no id or fingerprint — those are minted fresh on load so the same
// seed file never produces colliding profiles across deployments.
type seedDescriptor struct {
	OS       string `yaml:"os"`
	Browser  string `yaml:"browser"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Timezone string `yaml:"timezone"`
	Language string `yaml:"language"`
}

// loadSeedFile reads "<profilesDir>/seed_profiles.yaml", if present, and
// adds one freshly-id'd SyntheticProfile per descriptor. Absent file is not
// an error — the seed file is an optional operator extension on top of the
// built-in default set.
func (s *Store) loadSeedFile(ctx context.Context) error {
	seedPath := filepath.Join(s.profilesDir, "seed_profiles.yaml")
	data, err := os.ReadFile(seedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("profile: read seed file: %w", err)
	}

	var descriptors []seedDescriptor
	if err := yaml.Unmarshal(data, &descriptors); err != nil {
		return fmt.Errorf("profile: parse seed file: %w", err)
	}

	s.mu.Lock()
	added := 0
	for _, d := range descriptors {
		if d.Timezone == "" {
			d.Timezone = "America/New_York"
		}
		if d.Language == "" {
			d.Language = "en-US"
		}
		id := uuid.NewString()
		p := createProfile(id, d.OS, d.Browser, d.Width, d.Height, s.profilesDir)
		p.Metadata.Timezone = d.Timezone
		p.Metadata.Language = d.Language
		p.Fingerprint.AcceptLanguage = acceptLanguageHeader(d.Language)
		s.profiles[id] = p
		s.order = append(s.order, id)
		added++
	}
	s.mu.Unlock()

	if added > 0 {
		slog.Info("profile: loaded seed profiles", "count", added)
		return s.persist(ctx)
	}
	return nil
}

func (s *Store) loadFromRedis(ctx context.Context) (int, error) {
	keys, err := s.redis.Keys(ctx, "profile:*").Result()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		raw, err := s.redis.Get(ctx, key).Result()
		if err != nil {
			slog.Warn("profile: failed to read redis key (non-fatal)", "key", key, "error", err)
			continue
		}
		var p SyntheticProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			slog.Warn("profile: failed to parse redis profile (non-fatal)", "key", key, "error", err)
			continue
		}
		if _, exists := s.profiles[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		cp := p
		s.profiles[p.ID] = &cp
		n++
	}
	return n, nil
}

// createDefaultProfiles seeds the store with three representative profiles
// mirroring a common desktop population.
func (s *Store) createDefaultProfiles(ctx context.Context) error {
	defaults := []struct {
		id, os, browser string
		w, h            int
	}{
		{"windows_chrome_124", "Windows 11", "Chrome 124", 1920, 1080},
		{"mac_safari_17", "macOS 14", "Safari 17", 2560, 1600},
		{"linux_firefox_120", "Linux", "Firefox 120", 1920, 1080},
	}

	for _, d := range defaults {
		p := createProfile(d.id, d.os, d.browser, d.w, d.h, s.profilesDir)
		s.profiles[p.ID] = p
		s.order = append(s.order, p.ID)
	}

	slog.Info("profile: created default synthetic profiles", "count", len(defaults))
	return s.persist(ctx)
}

func createProfile(id, osName, browser string, w, h int, profilesDir string) *SyntheticProfile {
	now := time.Now()
	dir := filepath.Join(profilesDir, id)
	language := "en-US"

	fp := generateFingerprint(osName, browser, w, h)
	fp.AcceptLanguage = acceptLanguageHeader(language)

	return &SyntheticProfile{
		ID: id,
		Metadata: Metadata{
			OS:        osName,
			Browser:   browser,
			Viewport:  [2]int{w, h},
			Timezone:  "America/New_York",
			Language:  language,
			CreatedAt: now.Add(-30 * 24 * time.Hour),
			LastUsed:  now,
		},
		VisitHistory: []VisitRecord{
			{URL: "https://www.youtube.com", Title: "YouTube", VisitCount: 45, LastVisit: now.Add(-24 * time.Hour), DurationSeconds: 1200},
			{URL: "https://www.reddit.com", Title: "Reddit", VisitCount: 32, LastVisit: now.Add(-48 * time.Hour), DurationSeconds: 900},
			{URL: "https://www.cnn.com", Title: "CNN", VisitCount: 18, LastVisit: now.Add(-72 * time.Hour), DurationSeconds: 600},
		},
		CacheSizeMB:  500,
		CookieCount:  42,
		Fingerprint:  fp,
		ProfileDir:   dir,
	}
}

// acceptLanguageHeader builds an Accept-Language header value with the
// standard quality-weighted English fallback appended.
func acceptLanguageHeader(language string) string {
	if language == "" || language == "en-US" {
		return "en-US,en;q=0.9"
	}
	return language + ",en-US;q=0.9,en;q=0.8"
}

func generateFingerprint(osName, browser string, w, h int) Fingerprint {
	userAgent := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	switch {
	case osName == "macOS 14" && browser == "Safari 17":
		userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
	case osName == "Linux" && browser == "Firefox 120":
		userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
	}

	return Fingerprint{
		UserAgent:           userAgent,
		ScreenWidth:         w,
		ScreenHeight:        h,
		ColorDepth:          24,
		TimezoneOffsetMin:   -300,
		Platform:            osName,
		HardwareConcurrency: 8,
		DeviceMemoryGB:      8,
	}
}

// Get returns a profile by id, or the next profile in rotation order if id
// is empty. Rotation is fair: every profile id is visited at least once
// every len(order) calls.
func (s *Store) Get(ctx context.Context, id string) (*SyntheticProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil, models.NewAgentError(models.ErrCodeInternal, "no profiles available", nil)
	}

	var p *SyntheticProfile
	if id != "" {
		found, ok := s.profiles[id]
		if !ok {
			return nil, models.NewAgentError(models.ErrCodeInvalidInput, "profile not found: "+id, nil)
		}
		p = found
	} else {
		pid := s.order[s.rotationCursor%len(s.order)]
		s.rotationCursor++
		p = s.profiles[pid]
	}

	p.Metadata.LastUsed = time.Now()
	p.CacheSizeMB++
	p.CookieCount++

	if err := s.persistLocked(ctx); err != nil {
		slog.Warn("profile: failed to persist after use (non-fatal)", "error", err)
	}
	return p, nil
}

// persist writes the current set to Redis (best-effort) and the filesystem
// snapshot (must succeed).
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.redis != nil {
		for _, id := range s.order {
			p := s.profiles[id]
			raw, err := json.Marshal(p)
			if err != nil {
				continue
			}
			if err := s.redis.Set(ctx, "profile:"+id, raw, redisTTL).Err(); err != nil {
				slog.Warn("profile: failed to write redis (non-fatal)", "id", id, "error", err)
			}
		}
	}

	list := make([]*SyntheticProfile, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.profiles[id])
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return models.NewAgentError(models.ErrCodeInternal, "failed to serialize profiles", err)
	}
	snapshotPath := filepath.Join(s.profilesDir, "profiles.json")
	if err := os.WriteFile(snapshotPath, data, 0o644); err != nil {
		return models.NewAgentError(models.ErrCodeInternal, "failed to write profiles snapshot", err)
	}
	return nil
}

// Close releases the Redis client, if one was opened.
func (s *Store) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}
