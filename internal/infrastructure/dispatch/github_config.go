package dispatch

import (
	"fmt"
	"strings"
)

// Defaults for the GitHub Actions dispatcher
const (
	DefaultAPIBaseURL     = "https://api.github.com"
	DefaultWorkflowFile   = "implement-feature.yml"
	DefaultRef            = "main"
	DefaultTimeoutSeconds = 10
)

// GitHubConfig holds the settings for triggering the implementation
// workflow via the GitHub Actions workflow_dispatch API
type GitHubConfig struct {
	// Token is the access token used for the dispatch call
	Token string
	// Repository is the owner/name pair, e.g. "acme/feature-board"
	Repository string
	// WorkflowFile is the workflow file name in .github/workflows
	WorkflowFile string
	// Ref is the git ref the workflow runs on
	Ref string
	// APIBaseURL allows pointing at a GitHub Enterprise instance or a test server
	APIBaseURL string
	// TimeoutSeconds bounds the dispatch HTTP call
	TimeoutSeconds int
}

// ApplyDefaults fills unset optional fields
func (c *GitHubConfig) ApplyDefaults() {
	if c.WorkflowFile == "" {
		c.WorkflowFile = DefaultWorkflowFile
	}
	if c.Ref == "" {
		c.Ref = DefaultRef
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// IsConfigured reports whether the required credentials are present
func (c *GitHubConfig) IsConfigured() bool {
	return c.Token != "" && c.Repository != ""
}

// Validate checks the configuration for structural problems
func (c *GitHubConfig) Validate() error {
	if c.Repository != "" && !strings.Contains(c.Repository, "/") {
		return fmt.Errorf("github repository must be in owner/name form, got %q", c.Repository)
	}
	return nil
}
