// Package config assembles service configuration from ADAPTD_* environment
// variables on top of defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/adaptd/internal/engine"
	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/llm"
	"github.com/abhisek/adaptd/internal/selector"
	"github.com/abhisek/adaptd/internal/sink"
)

// EnvPrefix is prepended to every service environment variable.
const EnvPrefix = "ADAPTD_"

const (
	DefaultAddr    = ":8080"
	DefaultLogMode = "dev"

	ClassifierRule = "rule"
	ClassifierLLM  = "llm"
)

// Config is the full service configuration.
type Config struct {
	DBPath         string // empty means store.DefaultDBPath
	Addr           string
	CurriculumPath string // empty means the embedded curriculum
	LogMode        string

	// Classifier is "rule" or "llm". The LLM classifier falls back to the
	// rules when it fails.
	Classifier string

	Engine engine.Config

	RedisAddr    string
	RedisChannel string
	Neo4j        sink.Neo4jConfig

	LLM llm.Config
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Addr:         DefaultAddr,
		LogMode:      DefaultLogMode,
		Classifier:   ClassifierRule,
		Engine:       engine.DefaultConfig(),
		RedisChannel: sink.DefaultRedisChannel,
		LLM:          llm.DefaultConfig(),
	}
}

// FromEnv overlays environment variables on DefaultConfig. Malformed
// values are reported together; the rest of the config is still filled.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	cfg.LLM = llm.ConfigFromLookup(lookup)

	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	for name, dst := range map[string]*string{
		EnvPrefix + "DB":            &cfg.DBPath,
		EnvPrefix + "ADDR":          &cfg.Addr,
		EnvPrefix + "CURRICULUM":    &cfg.CurriculumPath,
		EnvPrefix + "LOG_MODE":      &cfg.LogMode,
		EnvPrefix + "CLASSIFIER":    &cfg.Classifier,
		EnvPrefix + "REDIS_CHANNEL": &cfg.RedisChannel,
		"REDIS_ADDR":                &cfg.RedisAddr,
		"NEO4J_URI":                 &cfg.Neo4j.URI,
		"NEO4J_USER":                &cfg.Neo4j.User,
		"NEO4J_PASSWORD":            &cfg.Neo4j.Password,
		"NEO4J_DATABASE":            &cfg.Neo4j.Database,
	} {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	var errs []error
	intVar := func(name string, dst *int) {
		if v, ok := get(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	floatVar := func(name string, dst *float64) {
		if v, ok := get(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if v, ok := get(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	if v, ok := get(EnvPrefix + "STRATEGY"); ok {
		s, err := selector.ParseStrategy(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTRATEGY: %w", EnvPrefix, err))
		} else {
			cfg.Engine.Policy.Strategy = s
		}
	}
	intVar("TARGET_MASTERY", &cfg.Engine.Policy.TargetMasteryPercent)
	intVar("ATTEMPTS_BEFORE_CHANGE", &cfg.Engine.Policy.AttemptsBeforeStrategyChange)
	intVar("GENTLE_WINDOW", &cfg.Engine.Policy.GentleWindow)
	floatVar("LEARNING_RATE", &cfg.Engine.Estimator.LearningRate)
	floatVar("CONCEPTUAL_PENALTY", &cfg.Engine.Estimator.ConceptualPenalty)
	durationVar("CLASSIFIER_TIMEOUT", &cfg.Engine.ClassifierTimeout)
	intVar("SNAPSHOT_EVERY", &cfg.Engine.SnapshotEvery)
	intVar("SNAPSHOT_KEEP", &cfg.Engine.SnapshotKeep)
	floatVar("STRUGGLING_ACCURACY", &cfg.Engine.Struggling.MinAccuracy)
	intVar("STRUGGLING_REPEATED_ERRORS", &cfg.Engine.Struggling.MaxRepeatedErrors)
	durationVar("NEO4J_TIMEOUT", &cfg.Neo4j.Timeout)

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the parts of the config that are not validated by the
// components themselves at construction.
func (c Config) Validate() error {
	var errs []error
	switch c.Classifier {
	case ClassifierRule, ClassifierLLM:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier %q (want %s or %s)", c.Classifier, ClassifierRule, ClassifierLLM))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Curriculum loads and builds the configured curriculum graph.
func (c Config) Curriculum() (*knowledge.Graph, error) {
	outline, err := knowledge.LoadFile(c.CurriculumPath)
	if err != nil {
		return nil, err
	}
	return knowledge.Build(outline)
}
