package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Feed     FeedConfig     `yaml:"feed"`
	Featured FeaturedConfig `yaml:"featured"`
	Theme    ThemeConfig    `yaml:"theme"`
	Features FeaturesConfig `yaml:"features"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"InkWell"`
	Description string `yaml:"description" default:"A place where developers share knowledge"`
	// Display name of the owner signed in by the ed25519 provider or when
	// authentication is disabled.
	Author string `yaml:"author" default:"Admin"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

type StorageConfig struct {
	// One of memory, sqlite, fs, s3.
	Backend     string   `yaml:"backend" default:"sqlite"`
	Path        string   `yaml:"path" default:"./inkwell.db"`
	Dir         string   `yaml:"dir" default:"./data"`
	Compression string   `yaml:"compression" default:"zstd"`
	S3          S3Config `yaml:"s3"`

	// How often the post collection is polled for changes made by other writers.
	ReloadInterval string `yaml:"reload_interval" default:"10s"`
}

// S3Config holds the non-secret bucket settings. Credentials come from the environment.
type S3Config struct {
	Bucket   string `yaml:"bucket" default:"inkwell"`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"inkwell/"`
}

type FeedConfig struct {
	PageSize        int    `yaml:"page_size" default:"3"`
	PageStep        int    `yaml:"page_step" default:"3"`
	TagDisplayLimit int    `yaml:"tag_display_limit" default:"4"`
	TrendingLimit   int    `yaml:"trending_limit" default:"10"`
	DefaultSort     string `yaml:"default_sort" default:"relevant"`
}

type FeaturedConfig struct {
	Enabled    bool   `yaml:"enabled" default:"true"`
	Interval   string `yaml:"interval" default:"5s"`
	Candidates int    `yaml:"candidates" default:"5"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"dark-theme"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

type FeaturesConfig struct {
	Authentication AuthConfig  `yaml:"authentication"`
	Comments       FeatureFlag `yaml:"comments"`
	Bookmarks      FeatureFlag `yaml:"bookmarks"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// One of ed25519, clerk.
	Type string `yaml:"type" default:"ed25519"`
}

type FeatureFlag struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

func (s StorageConfig) ReloadEvery() time.Duration {
	return parseDuration(s.ReloadInterval, 10*time.Second)
}

func (f FeaturedConfig) RotationInterval() time.Duration {
	return parseDuration(f.Interval, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		configLogger.Warn().Str("value", s).Dur("fallback", fallback).Msg("Invalid duration, using fallback")
		return fallback
	}
	return d
}

var AppConfig *Config

// Load reads the YAML file at path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		return config, nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func LoadConfig(path string) error {
	config, err := Load(path)
	if err != nil {
		return err
	}

	AppConfig = config
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
