package session

import (
	"fmt"
	"time"
)

// sanitizationScript returns the pre-document script that redefines
// automation-detectable getters before any page script runs.
// It rewrites navigator.hardwareConcurrency, navigator.deviceMemory,
// navigator.platform, navigator.webdriver, and the WebGL vendor/renderer
// parameters (37445/37446) on both WebGL1 and WebGL2 contexts.
func sanitizationScript(hardwareConcurrency, deviceMemoryGB int, platform, glVendor, glRenderer string) string {
	return fmt.Sprintf(`(() => {
  const define = (obj, prop, value) => {
    try {
      Object.defineProperty(obj, prop, { get: () => value, configurable: true });
    } catch (e) {}
  };
  define(navigator, 'hardwareConcurrency', %d);
  define(navigator, 'deviceMemory', %d);
  define(navigator, 'platform', %q);
  define(navigator, 'webdriver', undefined);

  const patchGetParameter = (proto) => {
    if (!proto || !proto.getParameter) return;
    const original = proto.getParameter;
    proto.getParameter = function (param) {
      if (param === 37445) return %q;
      if (param === 37446) return %q;
      return original.apply(this, arguments);
    };
  };
  try { patchGetParameter(WebGLRenderingContext.prototype); } catch (e) {}
  try { patchGetParameter(WebGL2RenderingContext.prototype); } catch (e) {}
})();`, hardwareConcurrency, deviceMemoryGB, platform, glVendor, glRenderer)
}

// entropyScript wraps getImageData/readPixels with a session-seeded linear
// congruential PRNG that adds bounded noise to R/G/B (never alpha).
// Noise is stable within one session (fixed seed) but unique
// across sessions (seed derives from session-creation wall-clock).
func entropyScript(seed int64, strength float64) string {
	return fmt.Sprintf(`(() => {
  let state = %dn & 0xffffffffn;
  const lcg = () => {
    state = (state * 1103515245n + 12345n) & 0x7fffffffn;
    return Number(state) / 0x7fffffff;
  };
  const strength = %g;
  const noisePixels = (data) => {
    for (let i = 0; i < data.length; i += 4) {
      for (let c = 0; c < 3; c++) {
        const delta = (lcg() * 2 - 1) * strength * 255;
        data[i + c] = Math.min(255, Math.max(0, data[i + c] + delta));
      }
    }
  };

  const origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
  CanvasRenderingContext2D.prototype.getImageData = function (...args) {
    const imageData = origGetImageData.apply(this, args);
    noisePixels(imageData.data);
    return imageData;
  };

  const patchReadPixels = (proto) => {
    if (!proto || !proto.readPixels) return;
    const original = proto.readPixels;
    proto.readPixels = function (x, y, w, h, format, type, pixels, ...rest) {
      const result = original.call(this, x, y, w, h, format, type, pixels, ...rest);
      if (pixels && pixels.length) noisePixels(pixels);
      return result;
    };
  };
  try { patchReadPixels(WebGLRenderingContext.prototype); } catch (e) {}
  try { patchReadPixels(WebGL2RenderingContext.prototype); } catch (e) {}
})();`, seed, strength)
}

// sessionSeed derives a stable-per-session entropy seed from wall-clock.
func sessionSeed() int64 {
	return time.Now().UnixNano() & 0x7fffffff
}

// defaultGLVendor/defaultGLRenderer are the fixed consumer-hardware WebGL
// strings used when no synthetic profile fingerprint is grafted onto the
// session.
const (
	defaultGLVendor   = "Google Inc. (NVIDIA)"
	defaultGLRenderer = "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"
	entropyStrength   = 0.01
)
