package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7.0, cfg.Decision.Approve)
	assert.Equal(t, 4.0, cfg.Decision.Reject)
	assert.Equal(t, 0.8, cfg.Consensus.DefaultThreshold)
	assert.Equal(t, 25.0, cfg.Consensus.MaxVariance)
	assert.Equal(t, 3, cfg.Sessions.DefaultRequiredJudges)
	assert.Equal(t, LateSubmissionReject, cfg.Sessions.LateSubmissionPolicy)
	assert.Equal(t, 0.7, cfg.Selection.HybridScoreFraction)
	assert.Equal(t, 30*24*time.Hour, cfg.Selection.ClaimWindow)
}

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
		verify  func(t *testing.T, cfg EngineConfig)
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, DefaultEngineConfig(), cfg)
			},
		},
		{
			name: "partial overlay",
			yaml: `
decision:
  approve_threshold: 8
  reject_threshold: 5
sessions:
  default_required_judges: 5
  late_submission_policy: ignore
  lock_timeout: 2s
selection:
  claim_window: 168h
notifications:
  max_retries: 0
`,
			verify: func(t *testing.T, cfg EngineConfig) {
				assert.Equal(t, 8.0, cfg.Decision.Approve)
				assert.Equal(t, 5.0, cfg.Decision.Reject)
				assert.Equal(t, 5, cfg.Sessions.DefaultRequiredJudges)
				assert.Equal(t, LateSubmissionIgnore, cfg.Sessions.LateSubmissionPolicy)
				assert.Equal(t, 2*time.Second, cfg.Sessions.LockTimeout)
				assert.Equal(t, 7*24*time.Hour, cfg.Selection.ClaimWindow)
				assert.Equal(t, 0, cfg.Notifications.MaxRetries)
				// Untouched sections keep their defaults.
				assert.Equal(t, 0.7, cfg.Selection.HybridScoreFraction)
				assert.Equal(t, 0.8, cfg.Consensus.DefaultThreshold)
			},
		},
		{
			name:    "unknown key",
			yaml:    "sessions:\n  required_judges: 2\n",
			wantErr: true,
			errMsg:  "field required_judges not found",
		},
		{
			name:    "reject above approve",
			yaml:    "decision:\n  approve_threshold: 5\n  reject_threshold: 6\n",
			wantErr: true,
			errMsg:  "invalid configuration",
		},
		{
			name:    "unknown late policy",
			yaml:    "sessions:\n  late_submission_policy: reopen\n",
			wantErr: true,
			errMsg:  "invalid configuration",
		},
		{
			name:    "hybrid fraction out of range",
			yaml:    "selection:\n  hybrid_score_fraction: 1.5\n",
			wantErr: true,
			errMsg:  "invalid configuration",
		},
		{
			name:    "malformed yaml",
			yaml:    "decision: [",
			wantErr: true,
			errMsg:  "YAML decode failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DecodeConfig(strings.NewReader(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestEngineConfig_ValidateWrapsSentinel(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Consensus.DefaultThreshold = 2
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfiguration)
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "judged.yaml")
		require.NoError(t, os.WriteFile(path, []byte("consensus:\n  default_threshold: 0.6\n"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 0.6, cfg.Consensus.DefaultThreshold)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)

		var cerr *ports.ConfigError
		require.True(t, errors.As(err, &cerr))
		assert.ErrorIs(t, err, ports.ErrConfigNotFound)
	})
}
