// Package config loads and validates the deal server configuration via viper.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Configuration holds every runtime setting for the deal server.
type Configuration struct {
	ExternalURL    string `mapstructure:"external_url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	AdminPort      int    `mapstructure:"admin_port"`
	EnableGzip     bool   `mapstructure:"enable_gzip"`
	StatusResponse string `mapstructure:"status_response"`

	SellerOrganizationID string `mapstructure:"seller_organization_id"`

	Pricing  Pricing  `mapstructure:"pricing"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Audience Audience `mapstructure:"audience"`
	Yield    Yield    `mapstructure:"yield"`
	Avails   Avails   `mapstructure:"avails"`
	Storage  Storage  `mapstructure:"storage"`
	Advisory Advisory `mapstructure:"advisory"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

// Pricing configures the tiered pricing engine.
type Pricing struct {
	// RulesFile optionally points at a JSON array of seller pricing rules
	// applied on top of the built-in tier ladder.
	RulesFile        string  `mapstructure:"rules_file"`
	CurrencyRatesURL string  `mapstructure:"currency_rates_url"`
	MarketCPM        float64 `mapstructure:"market_cpm"`
}

// Catalog configures where product definitions come from.
type Catalog struct {
	Type      string             `mapstructure:"type"` // file, postgres, memory
	Directory string             `mapstructure:"directory"`
	Postgres  PostgresConnection `mapstructure:"postgres"`

	InMemoryCache InMemoryCache `mapstructure:"in_memory_cache"`
}

// InMemoryCache configures the freecache layer in front of a catalog backend.
type InMemoryCache struct {
	Enabled    bool `mapstructure:"enabled"`
	SizeBytes  int  `mapstructure:"size_bytes"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

// PostgresConnection holds the settings to connect to a postgres database.
type PostgresConnection struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"dbname"`
	Username string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// ConnString builds the postgres connection string. TLS is not supported;
// sslmode is always disabled, matching how the server is deployed behind a
// private network.
func (cfg PostgresConnection) ConnString() string {
	buffer := bytes.NewBuffer(nil)
	buffer.WriteString("postgresql://")

	if cfg.Username != "" {
		buffer.WriteString(cfg.Username)
		if cfg.Password != "" {
			buffer.WriteString(":")
			buffer.WriteString(url.QueryEscape(cfg.Password))
		}
		buffer.WriteString("@")
	}

	if cfg.Host != "" {
		buffer.WriteString(cfg.Host)
	}
	if cfg.Port > 0 {
		buffer.WriteString(":")
		buffer.WriteString(strconv.Itoa(cfg.Port))
	}
	if cfg.Database != "" {
		buffer.WriteString("/")
		buffer.WriteString(cfg.Database)
	}
	buffer.WriteString("?sslmode=disable")

	return buffer.String()
}

// Audience configures the audience validator.
type Audience struct {
	MinimumCoveragePct float64 `mapstructure:"minimum_coverage_pct"`
}

// Yield configures the yield optimizer's scoring weights.
type Yield struct {
	FillRateTarget     float64 `mapstructure:"fill_rate_target"`
	RevenueWeight      float64 `mapstructure:"revenue_weight"`
	RelationshipWeight float64 `mapstructure:"relationship_weight"`
	FillRateWeight     float64 `mapstructure:"fill_rate_weight"`
	PricingPowerWeight float64 `mapstructure:"pricing_power_weight"`
	CurrentFillRate    float64 `mapstructure:"current_fill_rate"`
}

// Avails configures the availability source used during evaluation.
type Avails struct {
	Type string `mapstructure:"type"` // static
	// ByProduct maps product ids to available impressions for the static
	// source. Products not listed fall back to the built-in default pool.
	ByProduct map[string]int64 `mapstructure:"by_product"`
}

// Storage configures where evaluation records are persisted.
type Storage struct {
	Type      string             `mapstructure:"type"` // none, memory, postgres
	TableName string             `mapstructure:"table_name"`
	Postgres  PostgresConnection `mapstructure:"postgres"`
}

// Advisory configures the optional external advisory service consulted during
// the scoring stage.
type Advisory struct {
	Endpoint  string `mapstructure:"endpoint"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// Metrics toggles the go-metrics registry. Disabled metrics still record, they
// just record into blank instruments.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// New unmarshals and validates a configuration from a prepared viper instance.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (cfg *Configuration) validate() error {
	if cfg.Port < 1 {
		return fmt.Errorf("port must be a positive number, got %d", cfg.Port)
	}
	if cfg.SellerOrganizationID == "" {
		return fmt.Errorf("seller_organization_id is required")
	}

	switch cfg.Catalog.Type {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("catalog.type must be one of [memory, file, postgres], got %s", cfg.Catalog.Type)
	}
	if cfg.Catalog.Type == "file" && cfg.Catalog.Directory == "" {
		return fmt.Errorf("catalog.directory is required when catalog.type is file")
	}

	switch cfg.Storage.Type {
	case "none", "memory", "postgres":
	default:
		return fmt.Errorf("storage.type must be one of [none, memory, postgres], got %s", cfg.Storage.Type)
	}

	if cfg.Avails.Type != "static" {
		return fmt.Errorf("avails.type must be static, got %s", cfg.Avails.Type)
	}

	return nil
}

// SetupViper sets the config file search paths, environment bindings, and the
// default for every setting the server understands.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("status_response", "")
	v.SetDefault("seller_organization_id", "seller-1")

	v.SetDefault("pricing.rules_file", "")
	v.SetDefault("pricing.currency_rates_url", "")
	v.SetDefault("pricing.market_cpm", 15.0)

	v.SetDefault("catalog.type", "file")
	v.SetDefault("catalog.directory", "./static/products")
	v.SetDefault("catalog.in_memory_cache.enabled", false)
	v.SetDefault("catalog.in_memory_cache.size_bytes", 10*1024*1024)
	v.SetDefault("catalog.in_memory_cache.ttl_seconds", 300)

	v.SetDefault("audience.minimum_coverage_pct", 50.0)

	v.SetDefault("yield.fill_rate_target", 0.85)
	v.SetDefault("yield.revenue_weight", 0.4)
	v.SetDefault("yield.relationship_weight", 0.3)
	v.SetDefault("yield.fill_rate_weight", 0.2)
	v.SetDefault("yield.pricing_power_weight", 0.1)
	v.SetDefault("yield.current_fill_rate", 0.75)

	v.SetDefault("avails.type", "static")

	v.SetDefault("storage.type", "none")
	v.SetDefault("storage.table_name", "evaluation_records")

	v.SetDefault("advisory.endpoint", "")
	v.SetDefault("advisory.timeout_ms", 5000)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.prefix", "dealserver.")

	v.SetEnvPrefix("DEAL_SERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.ReadInConfig()
}
