package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from the GitHub API
const maxResponseSize = 1 * 1024 * 1024

// GitHubDispatcher triggers the implementation workflow through the
// GitHub Actions workflow_dispatch endpoint. The call is fire-and-forget
// from the caller's perspective: a 204 means GitHub accepted the run.
type GitHubDispatcher struct {
	config     *GitHubConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGitHubDispatcher creates a new GitHubDispatcher
func NewGitHubDispatcher(config *GitHubConfig, logger *zap.Logger) (*GitHubDispatcher, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &GitHubDispatcher{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// workflowDispatchPayload is the request body for the dispatch endpoint
type workflowDispatchPayload struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// Dispatch triggers the implementation workflow for a claimed feature
func (d *GitHubDispatcher) Dispatch(ctx context.Context, req appboard.DispatchRequest) error {
	if !d.config.IsConfigured() {
		return shared.NewDomainError("CONFIGURATION_ERROR", "GitHub token or repository is not configured")
	}

	payload := workflowDispatchPayload{
		Ref: d.config.Ref,
		Inputs: map[string]string{
			"feature_id":      req.FeatureID.String(),
			"feature_title":   req.Title,
			"feature_content": req.Description,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("github: failed to encode dispatch payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/dispatches",
		d.config.APIBaseURL, d.config.Repository, d.config.WorkflowFile)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("github: failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github.v3+json")
	httpReq.Header.Set("Authorization", "token "+d.config.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return shared.NewDomainError("REMOTE_ERROR", fmt.Sprintf("GitHub dispatch request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		d.logger.Error("GitHub workflow dispatch rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("repository", d.config.Repository),
			zap.ByteString("body", detail))
		return shared.NewDomainError("REMOTE_ERROR", fmt.Sprintf("GitHub dispatch returned HTTP %d", resp.StatusCode))
	}

	d.logger.Info("Implementation workflow dispatched",
		zap.String("feature_id", req.FeatureID.String()),
		zap.String("repository", d.config.Repository),
		zap.String("workflow", d.config.WorkflowFile))
	return nil
}

// Ensure GitHubDispatcher implements the dispatcher port
var _ appboard.WorkflowDispatcher = (*GitHubDispatcher)(nil)
