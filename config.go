package autonomy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/opstwin/autonomy/service/decision"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the gate configuration. It can
// be populated from JSON or YAML. The zero-value is useful – all nested
// fields inherit their package defaults through DefaultConfig.
type Config struct {
	Thresholds decision.Thresholds `json:"thresholds" yaml:"thresholds"`
	Scorer     ScorerConfig        `json:"scorer" yaml:"scorer"`
	Approval   ApprovalConfig      `json:"approval" yaml:"approval"`
	// Constraints are safety constraint rules in the textual
	// "name[type1,type2](reason)" format, registered at construction.
	Constraints []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

type ScorerConfig struct {
	HistoryWindow int `json:"historyWindow" yaml:"historyWindow"`
	MinSamples    int `json:"minSamples" yaml:"minSamples"`
}

type ApprovalConfig struct {
	// TimeoutHours is the default proposal validity window.
	TimeoutHours int `json:"timeoutHours" yaml:"timeoutHours"`
}

// Timeout returns the configured validity window as a duration.
func (a ApprovalConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutHours) * time.Hour
}

// DefaultConfig returns a Config populated with the standard policy values.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: decision.DefaultThresholds(),
		Scorer: ScorerConfig{
			HistoryWindow: 1000,
			MinSamples:    10,
		},
		Approval: ApprovalConfig{
			TimeoutHours: 24,
		},
	}
}

// Validate returns an aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Scorer.HistoryWindow <= 0 {
		return fmt.Errorf("scorer.historyWindow must be > 0")
	}
	if c.Scorer.MinSamples <= 0 {
		return fmt.Errorf("scorer.minSamples must be > 0")
	}
	if c.Approval.TimeoutHours < 0 {
		return fmt.Errorf("approval.timeoutHours must be >= 0")
	}
	for _, rule := range c.Constraints {
		if _, err := decision.ParseRule([]byte(rule)); err != nil {
			return fmt.Errorf("invalid constraint rule %q: %w", rule, err)
		}
	}
	return nil
}

// LoadConfig reads a YAML config from any afs-supported URL (file path, s3://,
// mem:// …), overlaying the package defaults. ${env.KEY} references in the
// document are expanded before parsing.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	data = []byte(expandEnvExpr(string(data)))
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// expandEnvExpr replaces all occurrences of ${env.KEY} in the input with the
// value of the environment variable KEY (or "" if unset).
func expandEnvExpr(value string) string {
	const prefix = "${env."
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(value[i:], prefix)
		if idx < 0 {
			b.WriteString(value[i:])
			break
		}
		b.WriteString(value[i : i+idx])
		startKey := i + idx + len(prefix)

		endKey := strings.IndexByte(value[startKey:], '}')
		if endKey < 0 {
			// no closing brace, keep the rest as literal
			b.WriteString(value[i+idx:])
			break
		}
		key := value[startKey : startKey+endKey]

		valid := true
		for _, r := range key {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
				valid = false
				break
			}
		}
		if valid {
			b.WriteString(os.Getenv(key))
		} else {
			// not an env reference, keep the expression verbatim
			b.WriteString(value[i+idx : startKey+endKey+1])
		}
		i = startKey + endKey + 1
	}
	return b.String()
}
