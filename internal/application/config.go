package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-gavel-contests/infrastructure/aggregation"
	"github.com/ahrav/go-gavel-contests/infrastructure/notify"
	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// LateSubmissionPolicy decides what happens to a score that arrives after
// its session completed.
type LateSubmissionPolicy string

const (
	// LateSubmissionReject fails the call with domain.ErrSessionCompleted.
	LateSubmissionReject LateSubmissionPolicy = "reject"
	// LateSubmissionIgnore stores the score but leaves the session and its
	// outcome untouched.
	LateSubmissionIgnore LateSubmissionPolicy = "ignore"
)

// EngineConfig holds every tunable of the judging engine. Start from
// DefaultEngineConfig and overlay a YAML file with LoadConfig.
type EngineConfig struct {
	// Decision classifies a session's final score.
	Decision domain.DecisionThresholds `yaml:"decision"`
	// Consensus tunes agreement reporting and the default threshold.
	Consensus ConsensusConfig `yaml:"consensus"`
	// Sessions holds session defaults and completion behavior.
	Sessions SessionsConfig `yaml:"sessions"`
	// Selection tunes winner selection.
	Selection SelectionConfig `yaml:"selection"`
	// Notifications configures delivery resilience.
	Notifications notify.Config `yaml:"notifications"`
}

// ConsensusConfig tunes the consensus heuristics.
type ConsensusConfig struct {
	// MaxVariance is the variance at which agreement reaches zero.
	MaxVariance float64 `yaml:"max_variance" validate:"gt=0"`
	// DefaultThreshold applies to sessions created without one.
	DefaultThreshold float64 `yaml:"default_threshold" validate:"gte=0,lte=1"`
}

// SessionsConfig holds judging session defaults.
type SessionsConfig struct {
	DefaultRequiredJudges int                  `yaml:"default_required_judges" validate:"min=1,max=100"`
	LateSubmissionPolicy  LateSubmissionPolicy `yaml:"late_submission_policy" validate:"oneof=reject ignore"`
	// LockTimeout bounds the wait for a submission's critical section.
	LockTimeout time.Duration `yaml:"lock_timeout" validate:"gt=0"`
}

// SelectionConfig tunes winner selection.
type SelectionConfig struct {
	// HybridScoreFraction is the share of hybrid winners picked by score;
	// the count is rounded up.
	HybridScoreFraction float64 `yaml:"hybrid_score_fraction" validate:"gt=0,lte=1"`
	// ClaimWindow is how long a giveaway winner has to claim the prize.
	ClaimWindow time.Duration `yaml:"claim_window" validate:"gt=0"`
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Decision: domain.DefaultDecisionThresholds(),
		Consensus: ConsensusConfig{
			MaxVariance:      aggregation.DefaultMaxVariance,
			DefaultThreshold: domain.DefaultConsensusThreshold,
		},
		Sessions: SessionsConfig{
			DefaultRequiredJudges: 3,
			LateSubmissionPolicy:  LateSubmissionReject,
			LockTimeout:           5 * time.Second,
		},
		Selection: SelectionConfig{
			HybridScoreFraction: 0.7,
			ClaimWindow:         30 * 24 * time.Hour,
		},
		Notifications: notify.DefaultConfig(),
	}
}

// Validate checks the struct tags of every section.
func (c EngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultEngineConfig. Keys that do not
// exist in EngineConfig are rejected so typos do not pass silently.
func LoadConfig(path string) (EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ports.ErrConfigNotFound, err)
		}
		return EngineConfig{}, ports.NewConfigError(cleanPath, err)
	}
	defer f.Close()

	return DecodeConfig(f)
}

// DecodeConfig is LoadConfig for an arbitrary reader.
func DecodeConfig(r io.Reader) (EngineConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultEngineConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return EngineConfig{}, fmt.Errorf("YAML decode failed: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
