package config

import (
	"errors"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// RiskRules holds the hot-reloadable evaluation thresholds. Values are
// inputs, not constants: product documentation does not pin the exact
// cut-lines, so everything here can change at runtime.
type RiskRules struct {
	// ResponseGapBreach is the hard threshold for time since the last
	// engineer-outbound event.
	ResponseGapBreach time.Duration `mapstructure:"response_gap_breach"`
	// ResponseGapWarningFraction positions the warning threshold as a
	// fraction of the breach threshold, in (0, 1).
	ResponseGapWarningFraction float64 `mapstructure:"response_gap_warning_fraction"`
	// NoteGapWarning and NoteGapBreach bound time since the last internal note.
	NoteGapWarning time.Duration `mapstructure:"note_gap_warning"`
	NoteGapBreach  time.Duration `mapstructure:"note_gap_breach"`
	// SentimentDeclineFloor: a declining trend whose latest score is at or
	// below this value classifies as breach.
	SentimentDeclineFloor float64 `mapstructure:"sentiment_decline_floor"`
	// TrendWindow is the sample count N for slope and volatility.
	TrendWindow int `mapstructure:"trend_window"`
	// TrendSlopeThreshold: slope above +t is improving, below -t declining.
	TrendSlopeThreshold float64 `mapstructure:"trend_slope_threshold"`
	// EvaluationInterval is the scheduler sweep cadence over open cases.
	EvaluationInterval time.Duration `mapstructure:"evaluation_interval"`
}

// ResponseGapWarning derives the warning threshold from the breach threshold.
func (r RiskRules) ResponseGapWarning() time.Duration {
	return time.Duration(float64(r.ResponseGapBreach) * r.ResponseGapWarningFraction)
}

// DefaultRiskRules returns the documented defaults.
func DefaultRiskRules() RiskRules {
	return RiskRules{
		ResponseGapBreach:          48 * time.Hour,
		ResponseGapWarningFraction: 0.5,
		NoteGapWarning:             120 * time.Hour,
		NoteGapBreach:              168 * time.Hour,
		SentimentDeclineFloor:      -0.3,
		TrendWindow:                3,
		TrendSlopeThreshold:        0.15,
		EvaluationInterval:         15 * time.Minute,
	}
}

// Validate rejects rule sets that must never be applied, even partially.
func (r RiskRules) Validate() error {
	if r.ResponseGapBreach <= 0 || r.NoteGapWarning <= 0 || r.NoteGapBreach <= 0 {
		return errorutil.NewConfigurationError("gap thresholds must be positive durations", nil)
	}
	if r.ResponseGapWarningFraction <= 0 || r.ResponseGapWarningFraction >= 1 {
		return errorutil.NewConfigurationError("response_gap_warning_fraction must be in (0, 1)", nil)
	}
	if r.NoteGapWarning >= r.NoteGapBreach {
		return errorutil.NewConfigurationError("note_gap_warning must be below note_gap_breach", nil)
	}
	if r.SentimentDeclineFloor < -1 || r.SentimentDeclineFloor > 0 {
		return errorutil.NewConfigurationError("sentiment_decline_floor must be in [-1, 0]", nil)
	}
	if r.TrendWindow < 2 {
		return errorutil.NewConfigurationError("trend_window must be at least 2", nil)
	}
	if r.TrendSlopeThreshold <= 0 {
		return errorutil.NewConfigurationError("trend_slope_threshold must be positive", nil)
	}
	if r.EvaluationInterval <= 0 {
		return errorutil.NewConfigurationError("evaluation_interval must be a positive duration", nil)
	}
	return nil
}

// RulesProvider serves the current rule snapshot to the pipeline. Reads are
// lock-free; reloads swap the whole snapshot so a bad file never applies
// half-way.
type RulesProvider struct {
	current atomic.Pointer[RiskRules]
	v       *viper.Viper
	logger  *zap.Logger
}

// LoadRules reads the rules file, validates it, and starts watching it for
// changes. A missing file is not an error: defaults apply until the file
// appears. An invalid file at startup is a hard error.
func LoadRules(path string, logger *zap.Logger) (*RulesProvider, error) {
	p := &RulesProvider{logger: logger}

	defaults := DefaultRiskRules()
	p.current.Store(&defaults)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setRuleDefaults(v, defaults)
	p.v = v

	if err := v.ReadInConfig(); err != nil {
		// Only an absent file falls back to defaults. A file that exists but
		// cannot be parsed is rejected outright.
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("risk rules file absent; using defaults", zap.String("path", path))
			return p, nil
		}
		return nil, errorutil.NewConfigurationError("risk rules file unreadable", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}

	rules, err := unmarshalRules(v)
	if err != nil {
		return nil, err
	}
	p.current.Store(&rules)

	v.OnConfigChange(func(fsnotify.Event) {
		reloaded, err := unmarshalRules(v)
		if err != nil {
			logger.Error("risk rules reload rejected; previous rules stay active", zap.Error(err))
			return
		}
		p.current.Store(&reloaded)
		logger.Info("risk rules reloaded",
			zap.Duration("response_gap_breach", reloaded.ResponseGapBreach),
			zap.Duration("note_gap_breach", reloaded.NoteGapBreach),
			zap.Float64("sentiment_decline_floor", reloaded.SentimentDeclineFloor))
	})
	v.WatchConfig()

	return p, nil
}

// Rules returns the active snapshot.
func (p *RulesProvider) Rules() RiskRules {
	return *p.current.Load()
}

// Replace swaps in a validated rule set directly. Used by tests and by
// callers that manage their own rule source.
func (p *RulesProvider) Replace(rules RiskRules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	p.current.Store(&rules)
	return nil
}

// NewStaticRules wraps a fixed rule set in a provider without file watching.
func NewStaticRules(rules RiskRules) (*RulesProvider, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	p := &RulesProvider{}
	p.current.Store(&rules)
	return p, nil
}

func setRuleDefaults(v *viper.Viper, d RiskRules) {
	v.SetDefault("response_gap_breach", d.ResponseGapBreach)
	v.SetDefault("response_gap_warning_fraction", d.ResponseGapWarningFraction)
	v.SetDefault("note_gap_warning", d.NoteGapWarning)
	v.SetDefault("note_gap_breach", d.NoteGapBreach)
	v.SetDefault("sentiment_decline_floor", d.SentimentDeclineFloor)
	v.SetDefault("trend_window", d.TrendWindow)
	v.SetDefault("trend_slope_threshold", d.TrendSlopeThreshold)
	v.SetDefault("evaluation_interval", d.EvaluationInterval)
}

func unmarshalRules(v *viper.Viper) (RiskRules, error) {
	var rules RiskRules
	if err := v.Unmarshal(&rules); err != nil {
		return RiskRules{}, errorutil.NewConfigurationError("risk rules file malformed", map[string]any{"error": err.Error()})
	}
	if err := rules.Validate(); err != nil {
		return RiskRules{}, err
	}
	return rules, nil
}
