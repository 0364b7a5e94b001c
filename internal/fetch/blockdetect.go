package fetch

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot wall detected.
type BlockType string

const (
	BlockNone    BlockType = ""
	BlockBotWall BlockType = "bot_wall"
	BlockCaptcha BlockType = "captcha"
	BlockJSShell BlockType = "js_shell"
)

// Body markers that indicate a challenge page rather than venue content.
var botWallMarkers = []string{
	"checking your browser",
	"cf-browser-verification",
	"attention required",
}

var captchaMarkers = []string{
	"captcha",
	"recaptcha",
	"hcaptcha",
}

// DetectBlock checks a response for signs that the page served is an
// anti-bot wall instead of the venue's site. Extraction over a challenge
// page would only produce garbage matches.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// CDN walls answer 403/503 with their own server headers.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true, BlockBotWall
		}
	}

	lower := strings.ToLower(string(body))

	for _, m := range botWallMarkers {
		if strings.Contains(lower, m) {
			return true, BlockBotWall
		}
	}
	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return true, BlockCaptcha
		}
	}

	// JS-only shell: tiny body that tells browsers to run script or
	// redirect. Nothing extractable lives here.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
