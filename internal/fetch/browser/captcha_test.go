package browser

import "testing"

func TestDetectChallengeFindsTurnstileSiteKey(t *testing.T) {
	html := `<div class="cf-turnstile" data-sitekey="0x4AAAAAAA"></div>`
	kind, key, ok := detectChallenge(html)
	if !ok || kind != "turnstile" || key != "0x4AAAAAAA" {
		t.Errorf("expected turnstile/0x4AAAAAAA, got kind=%q key=%q ok=%v", kind, key, ok)
	}
}

func TestDetectChallengeFindsRecaptchaSiteKey(t *testing.T) {
	html := `<div class="g-recaptcha" data-sitekey="6Lc-abc123"></div>`
	kind, key, ok := detectChallenge(html)
	if !ok || kind != "recaptcha" || key != "6Lc-abc123" {
		t.Errorf("expected recaptcha/6Lc-abc123, got kind=%q key=%q ok=%v", kind, key, ok)
	}
}

func TestDetectChallengeReturnsFalseForPlainPage(t *testing.T) {
	if _, _, ok := detectChallenge(`<html><body>Careers</body></html>`); ok {
		t.Error("expected no challenge detected on a plain page")
	}
}
