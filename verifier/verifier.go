// Package verifier runs the engine health probe on a freshly-launched
// session, failing startup if the engine is still leaking automation
// tell-tales.
package verifier

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"

	"github.com/use-agent/chimera/models"
)

// probeScript returns a record describing navigator.webdriver's exposure.
const probeScript = `() => {
	let toStringSig = "";
	try {
		const desc = Object.getOwnPropertyDescriptor(Navigator.prototype, 'webdriver')
			|| Object.getOwnPropertyDescriptor(navigator, 'webdriver');
		if (desc && desc.get) toStringSig = desc.get.toString();
	} catch (e) {}
	return {
		type_of_webdriver: typeof navigator.webdriver,
		value: navigator.webdriver === undefined ? "undefined" : String(navigator.webdriver),
		toString_signature: toStringSig,
	};
}`

// Verify runs the probe on page and returns whether the engine is clean.
//
// Only `typeof navigator.webdriver == "undefined"` is authoritative. The
// toString() check is evaluated and logged as a warning when it doesn't
// contain "native code", but it never flips the result to false — a getter
// defined from a user script never returns a native toString, so this
// warning fires in normal operation (preserved deliberately,
// not "fixed").
func Verify(page *rod.Page) (bool, error) {
	res, err := page.Eval(probeScript)
	if err != nil {
		return false, models.NewAgentError(models.ErrCodeEngineDirty, "health probe eval failed", err)
	}

	typeOfWebdriver := res.Value.Get("type_of_webdriver").Str()
	value := res.Value.Get("value").Str()
	toStringSig := res.Value.Get("toString_signature").Str()

	if !strings.Contains(toStringSig, "native code") {
		slog.Warn("verifier: webdriver getter toString lacks native code signature (non-fatal)",
			"toString", toStringSig)
	}

	clean := typeOfWebdriver == "undefined" && value == "undefined"
	return clean, nil
}
