package profile

import "time"

// VisitRecord is one entry of a profile's synthetic browsing history.
type VisitRecord struct {
	URL             string    `json:"url" yaml:"url"`
	Title           string    `json:"title" yaml:"title"`
	VisitCount      int       `json:"visit_count" yaml:"visit_count"`
	LastVisit       time.Time `json:"last_visit" yaml:"last_visit"`
	DurationSeconds int       `json:"duration_seconds" yaml:"duration_seconds"`
}

// Fingerprint is the set of navigator/screen properties a profile presents.
type Fingerprint struct {
	UserAgent           string `json:"user_agent" yaml:"user_agent"`
	ScreenWidth         int    `json:"screen_width" yaml:"screen_width"`
	ScreenHeight        int    `json:"screen_height" yaml:"screen_height"`
	ColorDepth          int    `json:"color_depth" yaml:"color_depth"`
	TimezoneOffsetMin   int    `json:"timezone_offset_min" yaml:"timezone_offset_min"`
	Platform            string `json:"platform" yaml:"platform"`
	HardwareConcurrency int    `json:"hardware_concurrency" yaml:"hardware_concurrency"`
	DeviceMemoryGB      int    `json:"device_memory_gb" yaml:"device_memory_gb"`
	AcceptLanguage      string `json:"accept_language" yaml:"accept_language"`
}

// Metadata is a profile's descriptive and usage-tracking fields.
type Metadata struct {
	OS        string    `json:"os" yaml:"os"`
	Browser   string    `json:"browser" yaml:"browser"`
	Viewport  [2]int    `json:"viewport" yaml:"viewport"`
	Timezone  string    `json:"timezone" yaml:"timezone"`
	Language  string    `json:"language" yaml:"language"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	LastUsed  time.Time `json:"last_used" yaml:"last_used"`
}

// SyntheticProfile is a browser identity with history, cache and cookie
// stand-ins so a freshly-launched session doesn't look like a burner.
type SyntheticProfile struct {
	ID           string        `json:"id" yaml:"id"`
	Metadata     Metadata      `json:"metadata" yaml:"metadata"`
	VisitHistory []VisitRecord `json:"visit_history" yaml:"visit_history"`
	CacheSizeMB  int           `json:"cache_size_mb" yaml:"cache_size_mb"`
	CookieCount  int           `json:"cookie_count" yaml:"cookie_count"`
	Fingerprint  Fingerprint   `json:"fingerprint" yaml:"fingerprint"`
	ProfileDir   string        `json:"profile_dir" yaml:"profile_dir"`
}
