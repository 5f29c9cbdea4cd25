package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Defaults for the hCaptcha verifier
const (
	DefaultSiteVerifyURL  = "https://hcaptcha.com/siteverify"
	DefaultTimeoutSeconds = 5
)

// maxResponseSize is the maximum allowed response size from the verify endpoint
const maxResponseSize = 64 * 1024

// HCaptchaConfig holds the settings for server-side CAPTCHA verification
type HCaptchaConfig struct {
	Secret         string
	SiteVerifyURL  string
	TimeoutSeconds int
}

// ApplyDefaults fills unset optional fields
func (c *HCaptchaConfig) ApplyDefaults() {
	if c.SiteVerifyURL == "" {
		c.SiteVerifyURL = DefaultSiteVerifyURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// HCaptchaVerifier verifies client-solved hCaptcha tokens against the
// siteverify endpoint
type HCaptchaVerifier struct {
	config     *HCaptchaConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHCaptchaVerifier creates a new HCaptchaVerifier
func NewHCaptchaVerifier(config *HCaptchaConfig, logger *zap.Logger) (*HCaptchaVerifier, error) {
	config.ApplyDefaults()
	if config.Secret == "" {
		return nil, shared.NewDomainError("CONFIGURATION_ERROR", "hCaptcha secret is not configured")
	}
	return &HCaptchaVerifier{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks the token with the hCaptcha service
func (v *HCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return shared.NewDomainError("INVALID_INPUT", "CAPTCHA token is required")
	}

	form := url.Values{}
	form.Set("secret", v.config.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.SiteVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("hcaptcha: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return shared.NewDomainError("REMOTE_ERROR", fmt.Sprintf("CAPTCHA verification request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("hcaptcha: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return shared.NewDomainError("REMOTE_ERROR", fmt.Sprintf("CAPTCHA service returned HTTP %d", resp.StatusCode))
	}

	var result siteVerifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return shared.NewDomainError("REMOTE_ERROR", "CAPTCHA service returned an unreadable response")
	}
	if !result.Success {
		v.logger.Warn("CAPTCHA verification failed",
			zap.Strings("error_codes", result.ErrorCodes))
		return shared.NewDomainError("INVALID_INPUT", "CAPTCHA verification failed")
	}
	return nil
}

// Ensure HCaptchaVerifier implements the verifier port
var _ appboard.CaptchaVerifier = (*HCaptchaVerifier)(nil)
