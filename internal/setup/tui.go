// Package setup is the terminal wizard that generates the governance
// configuration file.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

type wizardConfig struct {
	AccountEquity string            `yaml:"account_equity"`
	WalDir        string            `yaml:"wal_dir"`
	WebAddr       string            `yaml:"web_addr"`
	BurstLimit    int               `yaml:"burst_limit"`
	Threshold     int               `yaml:"multi_factor_threshold"`
	Cooldown      string            `yaml:"anomaly_cooldown"`
	Constraints   map[string]string `yaml:"constraints"`
}

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		equityStr     string
		liquidityStr  string
		manualStr     string
		maxBinStr     string
		minBinStr     string
		slippageStr   string
		burstLimitStr string
		thresholdStr  string
		webAddr       string
		outPath       string
		confirm       bool
	)

	// defaults
	liquidityStr = "0.10"
	manualStr = "0.10"
	maxBinStr = "0.06"
	minBinStr = "0.025"
	slippageStr = "0.05"
	burstLimitStr = "10"
	thresholdStr = "3"
	webAddr = ":8080"
	outPath = "config.yaml"

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GOVERNANCE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set the capital rules before any signal moves money.\n"))

	fmt.Println(stepStyle.Render("STEP 1: ACCOUNT"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account Equity (USD)").
				Description("Determines the capital tier (low < $2k, retail < $25k, pro above)").
				Value(&equityStr).
				Validate(validateDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GOVERNANCE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ALLOCATION CONSTRAINTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Liquidity Reserve").
				Description("Fraction of the account held in cash (e.g. 0.10)").
				Value(&liquidityStr).
				Validate(validateFraction),
			huh.NewInput().
				Title("Manual Trading Allocation").
				Description("Fraction reserved for discretionary orders (e.g. 0.10)").
				Value(&manualStr).
				Validate(validateFraction),
			huh.NewInput().
				Title("Max Bin Weight").
				Description("Per-bin allocation cap (e.g. 0.06)").
				Value(&maxBinStr).
				Validate(validateFraction),
			huh.NewInput().
				Title("Min Bin Weight").
				Description("Per-bin allocation floor (e.g. 0.025)").
				Value(&minBinStr).
				Validate(validateFraction),
			huh.NewInput().
				Title("Slippage Budget").
				Description("Cumulative options slippage envelope (e.g. 0.05)").
				Value(&slippageStr).
				Validate(validateFraction),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GOVERNANCE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: GATES"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Burst Limit").
				Description("Max signal submissions per trailing second").
				Value(&burstLimitStr),
			huh.NewInput().
				Title("Multi-Factor Threshold").
				Description("Independent domains that must agree (e.g. 3)").
				Value(&thresholdStr),
			huh.NewInput().
				Title("Review Server Address").
				Value(&webAddr),
			huh.NewInput().
				Title("Output Path").
				Value(&outPath),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GOVERNANCE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("CONFIRM"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Write configuration to %s?", outPath)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		fmt.Println("aborted, nothing written")
		return nil
	}

	burstLimit, threshold := 10, 3
	fmt.Sscanf(burstLimitStr, "%d", &burstLimit)
	fmt.Sscanf(thresholdStr, "%d", &threshold)

	cfg := wizardConfig{
		AccountEquity: equityStr,
		WalDir:        "./wal",
		WebAddr:       webAddr,
		BurstLimit:    burstLimit,
		Threshold:     threshold,
		Cooldown:      (90 * time.Second).String(),
		Constraints: map[string]string{
			"liquidity_reserve":         liquidityStr,
			"manual_trading_allocation": manualStr,
			"max_bin_weight":            maxBinStr,
			"min_bin_weight":            minBinStr,
			"slippage_budget":           slippageStr,
		},
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("Configuration written to " + outPath))
	return nil
}

func validateDecimal(s string) error {
	_, err := decimal.NewFromString(s)
	return err
}

func validateFraction(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	if d.LessThanOrEqual(decimal.Zero) || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be a fraction between 0 and 1")
	}
	return nil
}
