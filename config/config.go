package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/allocation"
)

// Config is the parsed runtime configuration of the governance pipeline.
type Config struct {
	AccountEquity decimal.Decimal
	WalDir        string
	WebAddr       string

	MaxFieldLength       int
	MaxPacketsPerSec     int
	BurstLimit           int
	MultiFactorThreshold int
	AnomalyCooldown      time.Duration

	Constraints allocation.Constraints
	Bins        []BinConfig
}

// BinConfig declares one capital bin and its permanent model assignment.
type BinConfig struct {
	Name       string
	Model      string
	Weight     decimal.Decimal
	Strategy   string
	Underlying string
	MarginMult decimal.Decimal
}

type configTmp struct {
	AccountEquity string `yaml:"account_equity"`
	WalDir        string `yaml:"wal_dir,omitempty"`
	WebAddr       string `yaml:"web_addr,omitempty"`

	MaxFieldLength       int    `yaml:"max_field_length,omitempty"`
	MaxPacketsPerSec     int    `yaml:"max_packets_per_sec,omitempty"`
	BurstLimit           int    `yaml:"burst_limit,omitempty"`
	MultiFactorThreshold int    `yaml:"multi_factor_threshold,omitempty"`
	AnomalyCooldown      string `yaml:"anomaly_cooldown,omitempty"`

	Constraints constraintsTmp `yaml:"constraints"`
	Bins        []binTmp       `yaml:"bins,omitempty"`
}

type constraintsTmp struct {
	LiquidityReserve        string `yaml:"liquidity_reserve"`
	ManualTradingAllocation string `yaml:"manual_trading_allocation"`
	MaxBinWeight            string `yaml:"max_bin_weight"`
	MinBinWeight            string `yaml:"min_bin_weight"`
	SlippageBudget          string `yaml:"slippage_budget"`
}

type binTmp struct {
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	Weight     string `yaml:"weight"`
	Strategy   string `yaml:"strategy,omitempty"`
	Underlying string `yaml:"underlying,omitempty"`
	MarginMult string `yaml:"margin_mult,omitempty"`
}

// Get loads the configuration from the path given by --config.
func Get() (*Config, error) {
	path := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()
	return Load(*path)
}

// Load reads and validates a YAML configuration file. Missing allocation
// constraints are a startup failure, never defaulted.
func Load(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	cfg := &Config{
		WalDir:               tmp.WalDir,
		WebAddr:              tmp.WebAddr,
		MaxFieldLength:       tmp.MaxFieldLength,
		MaxPacketsPerSec:     tmp.MaxPacketsPerSec,
		BurstLimit:           tmp.BurstLimit,
		MultiFactorThreshold: tmp.MultiFactorThreshold,
	}

	if tmp.AnomalyCooldown != "" {
		cfg.AnomalyCooldown, err = time.ParseDuration(tmp.AnomalyCooldown)
		if err != nil {
			return nil, errors.Wrap(err, "incorrect 'anomaly_cooldown' param in yaml config")
		}
	}

	if tmp.AccountEquity == "" {
		return nil, errors.New("'account_equity' param is required in yaml config")
	}
	cfg.AccountEquity, err = decimal.NewFromString(tmp.AccountEquity)
	if err != nil {
		return nil, errors.Wrap(err, "incorrect 'account_equity' param in yaml config")
	}

	cfg.Constraints, err = parseConstraints(tmp.Constraints)
	if err != nil {
		return nil, err
	}

	for _, b := range tmp.Bins {
		bin, err := parseBin(b)
		if err != nil {
			return nil, err
		}
		cfg.Bins = append(cfg.Bins, bin)
	}

	return cfg, nil
}

func parseConstraints(tmp constraintsTmp) (allocation.Constraints, error) {
	var c allocation.Constraints
	var err error

	for _, field := range []struct {
		name  string
		raw   string
		value *decimal.Decimal
	}{
		{"liquidity_reserve", tmp.LiquidityReserve, &c.LiquidityReserve},
		{"manual_trading_allocation", tmp.ManualTradingAllocation, &c.ManualTradingAllocation},
		{"max_bin_weight", tmp.MaxBinWeight, &c.MaxBinWeight},
		{"min_bin_weight", tmp.MinBinWeight, &c.MinBinWeight},
		{"slippage_budget", tmp.SlippageBudget, &c.SlippageBudget},
	} {
		if field.raw == "" {
			return c, errors.Errorf("required constraint %q is missing from yaml config", field.name)
		}
		*field.value, err = decimal.NewFromString(field.raw)
		if err != nil {
			return c, errors.Wrapf(err, "incorrect constraint %q in yaml config (must be a decimal)", field.name)
		}
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func parseBin(tmp binTmp) (BinConfig, error) {
	if tmp.Name == "" || tmp.Model == "" {
		return BinConfig{}, errors.New("bin entries require 'name' and 'model' params in yaml config")
	}

	weight, err := decimal.NewFromString(tmp.Weight)
	if err != nil {
		return BinConfig{}, errors.Wrapf(err, "incorrect 'weight' param for bin %q in yaml config", tmp.Name)
	}

	marginMult := decimal.NewFromInt(1)
	if tmp.MarginMult != "" {
		marginMult, err = decimal.NewFromString(tmp.MarginMult)
		if err != nil {
			return BinConfig{}, errors.Wrapf(err, "incorrect 'margin_mult' param for bin %q in yaml config", tmp.Name)
		}
	}

	return BinConfig{
		Name:       tmp.Name,
		Model:      tmp.Model,
		Weight:     weight,
		Strategy:   tmp.Strategy,
		Underlying: tmp.Underlying,
		MarginMult: marginMult,
	}, nil
}
