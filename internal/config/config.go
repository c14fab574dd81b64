package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"gopkg.in/yaml.v3"
)

const (
	ServiceName    = "invoicebook"
	ServiceVersion = "0.1.0"
)

const (
	ModeConsole = "console"
	ModeHTTP    = "http"

	StoreFile   = "file"
	StoreMemory = "memory"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML config file.
const ConfigFileEnv = "INVOICEBOOK_CONFIG"

// Config holds runtime settings. Precedence: defaults, then the YAML file, then environment variables.
type Config struct {
	ServiceName string `yaml:"service_name"`
	Env         string `yaml:"env"`
	Mode        string `yaml:"mode"`
	HTTPAddr    string `yaml:"http_addr"`

	Store         string              `yaml:"store"`
	InventoryFile string              `yaml:"inventory_file"`
	ReportFile    string              `yaml:"report_file"`
	ReportPolicy  invoice.WritePolicy `yaml:"report_policy"`
	// InventoryTracking off reproduces the plain invoice generator: no stock checks, no decrements.
	InventoryTracking bool `yaml:"inventory_tracking"`
	LowStockThreshold int  `yaml:"low_stock_threshold"`

	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	OtelEndpoint string `yaml:"otel_endpoint"`
	OtelInsecure bool   `yaml:"otel_insecure"`
}

func Default() Config {
	return Config{
		ServiceName:       ServiceName,
		Env:               "dev",
		Mode:              ModeConsole,
		HTTPAddr:          ":8080",
		Store:             StoreFile,
		InventoryFile:     "inventory.json",
		ReportFile:        "invoices.txt",
		ReportPolicy:      invoice.PolicyAppend,
		InventoryTracking: true,
		LowStockThreshold: 0,
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, the file named by INVOICEBOOK_CONFIG and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.ServiceName = getenvDefault("SERVICE_NAME", c.ServiceName)
	c.Env = getenvDefault("ENV", c.Env)
	c.Mode = strings.ToLower(getenvDefault("MODE", c.Mode))
	c.HTTPAddr = getenvDefault("HTTP_ADDR", c.HTTPAddr)
	c.Store = strings.ToLower(getenvDefault("STORE", c.Store))
	c.InventoryFile = getenvDefault("INVENTORY_FILE", c.InventoryFile)
	c.ReportFile = getenvDefault("REPORT_FILE", c.ReportFile)
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
	c.LogFile = getenvDefault("LOG_FILE", c.LogFile)
	c.OtelEndpoint = getenvDefault("OTEL_ENDPOINT", c.OtelEndpoint)

	if v := os.Getenv("REPORT_POLICY"); v != "" {
		policy, err := invoice.ParseWritePolicy(v)
		if err != nil {
			return fmt.Errorf("config: REPORT_POLICY: %w", err)
		}
		c.ReportPolicy = policy
	}
	var err error
	if c.InventoryTracking, err = getenvBool("INVENTORY_TRACKING", c.InventoryTracking); err != nil {
		return err
	}
	if c.OtelInsecure, err = getenvBool("OTEL_INSECURE", c.OtelInsecure); err != nil {
		return err
	}
	if v := os.Getenv("LOW_STOCK_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: LOW_STOCK_THRESHOLD: %w", err)
		}
		c.LowStockThreshold = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeConsole, ModeHTTP:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.Store {
	case StoreFile:
		if c.InventoryFile == "" || c.ReportFile == "" {
			return fmt.Errorf("config: file store needs inventory_file and report_file")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	policy, err := invoice.ParseWritePolicy(string(c.ReportPolicy))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.ReportPolicy = policy
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("config: low_stock_threshold cannot be negative")
	}
	if c.Mode == ModeHTTP && c.HTTPAddr == "" {
		return fmt.Errorf("config: http mode needs http_addr")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
