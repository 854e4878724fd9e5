package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crewhq/crew/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify crew configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/crew/config.yaml
Project-specific overrides can be placed in .crew.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("defaults.workers: %d\n", cfg.Defaults.Workers)
	fmt.Printf("defaults.cost_limit: %g\n", cfg.Defaults.CostLimit)
	fmt.Printf("defaults.cache_size: %d\n", cfg.Defaults.CacheSize)
	fmt.Printf("defaults.cache_ttl: %s\n", cfg.Defaults.CacheTTL)
	fmt.Printf("defaults.critical_priority: %d\n", cfg.Defaults.CriticalPriority)
	fmt.Printf("breaker.failure_threshold: %d\n", cfg.Breaker.FailureThreshold)
	fmt.Printf("breaker.success_threshold: %d\n", cfg.Breaker.SuccessThreshold)
	fmt.Printf("breaker.cooldown: %s\n", cfg.Breaker.Cooldown)
	fmt.Printf("retry.initial_interval: %s\n", cfg.Retry.InitialInterval)
	fmt.Printf("retry.max_interval: %s\n", cfg.Retry.MaxInterval)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.max_tokens":
		return strconv.Itoa(cfg.Anthropic.MaxTokens), nil
	case "defaults.workers":
		return strconv.Itoa(cfg.Defaults.Workers), nil
	case "defaults.cost_limit":
		return strconv.FormatFloat(cfg.Defaults.CostLimit, 'g', -1, 64), nil
	case "defaults.cache_size":
		return strconv.Itoa(cfg.Defaults.CacheSize), nil
	case "defaults.cache_ttl":
		return cfg.Defaults.CacheTTL.String(), nil
	case "defaults.critical_priority":
		return strconv.Itoa(cfg.Defaults.CriticalPriority), nil
	case "breaker.failure_threshold":
		return strconv.Itoa(cfg.Breaker.FailureThreshold), nil
	case "breaker.success_threshold":
		return strconv.Itoa(cfg.Breaker.SuccessThreshold), nil
	case "breaker.cooldown":
		return cfg.Breaker.Cooldown.String(), nil
	case "retry.initial_interval":
		return cfg.Retry.InitialInterval.String(), nil
	case "retry.max_interval":
		return cfg.Retry.MaxInterval.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Anthropic.MaxTokens = n
	case "defaults.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for workers: %w", err)
		}
		cfg.Defaults.Workers = n
	case "defaults.cost_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for cost_limit: %w", err)
		}
		cfg.Defaults.CostLimit = f
	case "defaults.cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for cache_size: %w", err)
		}
		cfg.Defaults.CacheSize = n
	case "defaults.cache_ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for cache_ttl: %w", err)
		}
		cfg.Defaults.CacheTTL = d
	case "defaults.critical_priority":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for critical_priority: %w", err)
		}
		cfg.Defaults.CriticalPriority = n
	case "breaker.failure_threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for failure_threshold: %w", err)
		}
		cfg.Breaker.FailureThreshold = n
	case "breaker.success_threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for success_threshold: %w", err)
		}
		cfg.Breaker.SuccessThreshold = n
	case "breaker.cooldown":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for cooldown: %w", err)
		}
		cfg.Breaker.Cooldown = d
	case "retry.initial_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for initial_interval: %w", err)
		}
		cfg.Retry.InitialInterval = d
	case "retry.max_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for max_interval: %w", err)
		}
		cfg.Retry.MaxInterval = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
