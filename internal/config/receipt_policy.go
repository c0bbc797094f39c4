package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultListLimit     = 50
	MaxListLimit         = 500
	DefaultSerialPadding = 4
)

// ReceiptPolicy controls how receipts are reconciled, listed and printed.
type ReceiptPolicy struct {
	SchoolName    string `mapstructure:"schoolName"`
	AddressLine   string `mapstructure:"addressLine"`
	Phone         string `mapstructure:"phone"`
	SessionLabel  string `mapstructure:"sessionLabel"`
	Tolerance     string `mapstructure:"tolerance"`
	ListLimit     int    `mapstructure:"listLimit"`
	MaxListLimit  int    `mapstructure:"maxListLimit"`
	SerialPadding int    `mapstructure:"serialPadding"`
}

func DefaultReceiptPolicy() ReceiptPolicy {
	return ReceiptPolicy{
		SchoolName:    "School",
		Tolerance:     "0.01",
		ListLimit:     DefaultListLimit,
		MaxListLimit:  MaxListLimit,
		SerialPadding: DefaultSerialPadding,
	}
}

// ToleranceDecimal returns the absolute reconciliation tolerance.
func (p ReceiptPolicy) ToleranceDecimal() decimal.Decimal {
	tol, err := decimal.NewFromString(strings.TrimSpace(p.Tolerance))
	if err != nil || tol.IsNegative() {
		return decimal.New(1, -2)
	}
	return tol
}

// ClampLimit applies the default and max list limits.
func (p ReceiptPolicy) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = p.ListLimit
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	max := p.MaxListLimit
	if max <= 0 {
		max = MaxListLimit
	}
	if limit > max {
		limit = max
	}
	return limit
}

type ReceiptPolicyHolder struct {
	current atomic.Value // holds ReceiptPolicy
}

// NewStaticReceiptPolicyHolder wraps a fixed policy without watching any file.
func NewStaticReceiptPolicyHolder(policy ReceiptPolicy) *ReceiptPolicyHolder {
	holder := &ReceiptPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewReceiptPolicyHolder(cfg Config, log *zap.Logger) (*ReceiptPolicyHolder, error) {
	log = log.Named("config.receipts")
	v := viper.New()

	if cfg.ReceiptPolicyPath != "" {
		v.SetConfigFile(cfg.ReceiptPolicyPath)
	} else {
		v.SetConfigName("receipts")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/bursar")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BURSAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReceiptPolicy()
	v.SetDefault("receipts.schoolName", defaults.SchoolName)
	v.SetDefault("receipts.tolerance", defaults.Tolerance)
	v.SetDefault("receipts.listLimit", defaults.ListLimit)
	v.SetDefault("receipts.maxListLimit", defaults.MaxListLimit)
	v.SetDefault("receipts.serialPadding", defaults.SerialPadding)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	policy, err := decodeReceiptPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticReceiptPolicyHolder(policy)
	if !found {
		log.Info("receipt policy file not found, using defaults")
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeReceiptPolicy(v)
		if err != nil {
			log.Warn("receipt policy reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("receipt policy reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *ReceiptPolicyHolder) Get() ReceiptPolicy {
	if h == nil {
		return DefaultReceiptPolicy()
	}
	return h.current.Load().(ReceiptPolicy)
}

func decodeReceiptPolicy(v *viper.Viper) (ReceiptPolicy, error) {
	policy := DefaultReceiptPolicy()
	if err := v.UnmarshalKey("receipts", &policy); err != nil {
		return ReceiptPolicy{}, err
	}
	if err := validateReceiptPolicy(policy); err != nil {
		return ReceiptPolicy{}, err
	}
	return policy, nil
}

func validateReceiptPolicy(policy ReceiptPolicy) error {
	tol, err := decimal.NewFromString(strings.TrimSpace(policy.Tolerance))
	if err != nil {
		return errors.New("receipts.tolerance must be a decimal")
	}
	if tol.IsNegative() {
		return errors.New("receipts.tolerance cannot be negative")
	}
	if policy.ListLimit < 0 || policy.MaxListLimit < 0 {
		return errors.New("receipts list limits cannot be negative")
	}
	if policy.SerialPadding < 0 || policy.SerialPadding > 12 {
		return errors.New("receipts.serialPadding out of range")
	}
	return nil
}
