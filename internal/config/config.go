// Package config loads tenant and service configuration with Viper. Values
// come from an optional orderline.yaml, environment variables prefixed with
// ORDERLINE_, and built-in defaults, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/openacq/orderline/pkg/orders"
)

// Default tenant values applied when no configuration overrides them.
const (
	DefaultLineLimit = 500
)

// Config is the resolved service configuration.
type Config struct {
	// Remote store endpoints.
	OrdersStorageURL string `mapstructure:"orders_storage_url"`
	FinanceURL       string `mapstructure:"finance_url"`
	InventoryURL     string `mapstructure:"inventory_url"`

	// Tenant identity sent with every remote request.
	Tenant string `mapstructure:"tenant"`
	Token  string `mapstructure:"token"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	InventoryDefaults TenantInventory `mapstructure:"inventory"`
}

// TenantInventory holds the tenant-level create-inventory modes and the
// per-order line limit.
type TenantInventory struct {
	Eresource string `mapstructure:"eresource"`
	Physical  string `mapstructure:"physical"`
	Other     string `mapstructure:"other"`
	LineLimit int    `mapstructure:"line_limit"`
}

// Load reads configuration from the given file (or the default search
// paths when path is empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDERLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("orders_storage_url", "http://localhost:9130")
	v.SetDefault("finance_url", "http://localhost:9130")
	v.SetDefault("inventory_url", "http://localhost:9130")
	v.SetDefault("log_level", "info")
	v.SetDefault("inventory.eresource", orders.InventoryInstanceHolding.String())
	v.SetDefault("inventory.physical", orders.InventoryInstanceHoldingItem.String())
	v.SetDefault("inventory.other", orders.InventoryInstanceHoldingItem.String())
	v.SetDefault("inventory.line_limit", DefaultLineLimit)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orderline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.orderline")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Inventory returns the tenant inventory defaults in domain form. It
// satisfies the line coordinator's Defaults collaborator.
func (c *Config) Inventory(_ context.Context) (*orders.InventoryDefaults, error) {
	return &orders.InventoryDefaults{
		Eresource: orders.CreateInventory(c.InventoryDefaults.Eresource),
		Physical:  orders.CreateInventory(c.InventoryDefaults.Physical),
		Other:     orders.CreateInventory(c.InventoryDefaults.Other),
		LineLimit: c.InventoryDefaults.LineLimit,
	}, nil
}
