// Package session owns one browser process bound to the sidecar proxy,
// exposing navigation, screenshot, pointer, keyboard, scroll, URL/title
// primitives, and injecting the pre-document sanitization + entropy scripts
// on every new document.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/profile"
)

// Point is a 2D page-pixel coordinate.
type Point struct {
	X, Y float64
}

// Session represents one live browser process. Only one
// action may drive the browser at a time; concurrent operations serialize
// through mu.
type Session struct {
	ID       string
	Headless bool

	mu           sync.Mutex
	browser      *rod.Browser
	page         *rod.Page
	lastPointer  Point
	viewportW    int
	viewportH    int
	closed       bool
}

// Options configures a new Session.
type Options struct {
	Headless   bool
	ProxyPort  int
	BrowserBin string
	NoSandbox  bool
	ViewportW  int
	ViewportH  int

	// Fingerprint grafts a SyntheticProfile's navigator/WebGL identity onto
	// the session's pre-document sanitization script and user-agent header.
	// Nil uses the built-in default consumer-hardware identity.
	Fingerprint *profile.Fingerprint

	// SkipSanitization disables all pre-document script injection (base
	// stealth bundle, navigator/WebGL getter rewrites, entropy injection).
	// Test-only hook for exercising the verifier fail-fast path.
	SkipSanitization bool
}

// New launches a browser process bound to the sidecar proxy and registers
// the pre-document sanitization + entropy scripts before returning, so it
// provably runs before any page's first script.
func New(id string, opts Options) (*Session, error) {
	if opts.ViewportW == 0 {
		opts.ViewportW = 1920
	}
	if opts.ViewportH == 0 {
		opts.ViewportH = 1080
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Delete(flags.Flag("enable-automation")).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.ViewportW, opts.ViewportH))

	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}
	if opts.ProxyPort > 0 {
		l = l.Proxy(fmt.Sprintf("http://127.0.0.1:%d", opts.ProxyPort))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewAgentError(models.ErrCodeBrowserFailure, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewAgentError(models.ErrCodeBrowserFailure, "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return nil, models.NewAgentError(models.ErrCodeBrowserFailure, "failed to open page", err)
	}
	if err := page.SetViewport(&proto.PageSetDeviceMetricsOverride{
		Width:  opts.ViewportW,
		Height: opts.ViewportH,
	}); err != nil {
		slog.Warn("session: failed to set viewport", "error", err)
	}

	s := &Session{
		ID:        id,
		Headless:  opts.Headless,
		browser:   browser,
		page:      page,
		viewportW: opts.ViewportW,
		viewportH: opts.ViewportH,
		lastPointer: Point{
			X: float64(opts.ViewportW) / 2,
			Y: float64(opts.ViewportH) / 2,
		},
	}

	if !opts.SkipSanitization {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("session: base stealth injection failed", "error", err)
		}

		hwConcurrency, deviceMemory, platform := 8, 8, "Win32"
		if fp := opts.Fingerprint; fp != nil {
			hwConcurrency, deviceMemory, platform = fp.HardwareConcurrency, fp.DeviceMemoryGB, fp.Platform
			if err := (proto.NetworkSetUserAgentOverride{UserAgent: fp.UserAgent}).Call(page); err != nil {
				slog.Warn("session: user-agent override failed", "error", err)
			}
			if fp.AcceptLanguage != "" {
				if err := (proto.NetworkSetExtraHTTPHeaders{
					Headers: toHeadersMap(map[string]string{"Accept-Language": fp.AcceptLanguage}),
				}).Call(page); err != nil {
					slog.Warn("session: accept-language header override failed", "error", err)
				}
			}
		}
		sanitization := sanitizationScript(hwConcurrency, deviceMemory, platform, defaultGLVendor, defaultGLRenderer)
		if _, err := page.EvalOnNewDocument(sanitization); err != nil {
			slog.Warn("session: sanitization script injection failed", "error", err)
		}
		entropy := entropyScript(sessionSeed(), entropyStrength)
		if _, err := page.EvalOnNewDocument(entropy); err != nil {
			slog.Warn("session: entropy injection failed", "error", err)
		}
	}

	return s, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// Navigate loads url in the session's page.
func (s *Session) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.page.Navigate(url); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "navigation failed", err)
	}
	if err := s.page.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("session: WaitDOMStable did not converge", "error", err)
	}
	return nil
}

// Screenshot captures the current page as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenshotLocked()
}

func (s *Session) screenshotLocked() ([]byte, error) {
	data, err := s.page.Screenshot(false, nil)
	if err != nil {
		return nil, models.NewAgentError(models.ErrCodeBrowserFailure, "screenshot failed", err)
	}
	return data, nil
}

// VisualHash returns the hex SHA-256 digest of the current screenshot PNG.
func (s *Session) VisualHash() (string, error) {
	data, err := s.Screenshot()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// URL returns the page's current location.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.page.Eval(`() => window.location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// Title returns the page's current document title.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.page.Eval(`() => document.title`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// Click issues a raw mouse press+release at (x, y) and updates lastPointer.
// Humanization (WindMouse trajectory, Hick's-Law delay) lives in motor.Mouse,
// which drives these primitives rather than duplicating them.
func (s *Session) Click(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "mouse move failed", err)
	}
	if err := s.page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "mouse click failed", err)
	}
	s.lastPointer = Point{X: x, Y: y}
	return nil
}

// MoveTo moves the pointer without clicking (used by WindMouse trajectory
// playback and micro-fidget).
func (s *Session) MoveTo(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "mouse move failed", err)
	}
	s.lastPointer = Point{X: x, Y: y}
	return nil
}

// LastPointer returns the last known pointer position.
func (s *Session) LastPointer() Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPointer
}

// Type inserts the whole of text into the focused element in a single call.
func (s *Session) Type(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.page.InsertText(text); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "type failed", err)
	}
	return nil
}

// TypeRune issues a single keystroke (used by motor.Keyboard's per-character
// cadence loop, which needs to sleep between individual runes).
func (s *Session) TypeRune(r rune) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.page.InsertText(string(r)); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "type failed", err)
	}
	return nil
}

// Scroll scrolls the page by (dx, dy) pixels at raw CDP level; motor.Mouse
// layers the sub-stepped speed curve on top by calling this repeatedly.
func (s *Session) Scroll(dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.page.Mouse.Scroll(dx, dy, 0); err != nil {
		return models.NewAgentError(models.ErrCodeBrowserFailure, "scroll failed", err)
	}
	return nil
}

// Viewport returns the configured viewport dimensions.
func (s *Session) Viewport() (int, int) {
	return s.viewportW, s.viewportH
}

// Page exposes the underlying rod.Page for packages that need lower-level
// access (perception's AX-tree extraction, verifier's health probe).
func (s *Session) Page() *rod.Page {
	return s.page
}

// Close terminates the browser process. Dropping the Session is a no-op;
// Close must be called explicitly.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.browser.MustClose()
}
