package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	once sync.Once
	cfg  *Config
)

// Config holds all service settings. Values come from an optional YAML file
// (CONFIG_FILE, default config.yaml) with environment variables on top.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Converter ConverterConfig `yaml:"converter"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr               string `yaml:"addr"`
	MaxMultipartMemory int64  `yaml:"maxMultipartMemory"` // bytes
}

type ConverterConfig struct {
	LibreOfficeBin       string `yaml:"libreofficeBin"`
	OfficeTimeoutSeconds int    `yaml:"officeTimeoutSeconds"`
	PdfInfoBin           string `yaml:"pdfinfoBin"`
	PdfToPpmBin          string `yaml:"pdftoppmBin"`
}

// OfficeTimeout returns the LibreOffice budget as a duration.
func (c ConverterConfig) OfficeTimeout() time.Duration {
	return time.Duration(c.OfficeTimeoutSeconds) * time.Second
}

type LogConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("no .env file found, using environment variables")
		}

		cfg = &Config{
			Server: ServerConfig{
				Addr:               ":8080",
				MaxMultipartMemory: 64 << 20, // 64MB
			},
			Converter: ConverterConfig{
				LibreOfficeBin:       "libreoffice",
				OfficeTimeoutSeconds: 120,
				PdfInfoBin:           "pdfinfo",
				PdfToPpmBin:          "pdftoppm",
			},
			Log: LogConfig{
				Level:       "info",
				Encoding:    "json",
				OutputPaths: []string{"stdout", "logs/app.log"},
			},
		}

		path := envOr("CONFIG_FILE", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Fatalf("invalid config file %s: %v", path, err)
			}
		}

		applyEnvOverrides(cfg)
	})
	return cfg
}

func applyEnvOverrides(c *Config) {
	c.Server.Addr = envOr("SERVER_ADDR", c.Server.Addr)
	c.Converter.LibreOfficeBin = envOr("LIBREOFFICE_BIN", c.Converter.LibreOfficeBin)
	c.Converter.PdfInfoBin = envOr("PDFINFO_BIN", c.Converter.PdfInfoBin)
	c.Converter.PdfToPpmBin = envOr("PDFTOPPM_BIN", c.Converter.PdfToPpmBin)
	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = envOr("LOG_ENCODING", c.Log.Encoding)

	if v := os.Getenv("OFFICE_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Converter.OfficeTimeoutSeconds = secs
		}
	}
	if v := os.Getenv("MAX_MULTIPART_MEMORY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Server.MaxMultipartMemory = n
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
