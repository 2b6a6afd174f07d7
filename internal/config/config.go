package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config models teampulse.yml.
type Config struct {
	Org struct {
		Name string `yaml:"name" validate:"required"`
	} `yaml:"org"`
	Server struct {
		Addr     string `yaml:"addr" validate:"required,hostname_port"`
		BasePath string `yaml:"base_path" validate:"required,startswith=/"`
	} `yaml:"server"`
	Auth struct {
		Secret           string `yaml:"secret"`
		TokenTTLMinutes  int    `yaml:"token_ttl_minutes" validate:"omitempty,min=1,max=1440"`
		AllowActorHeader bool   `yaml:"allow_actor_header"`
	} `yaml:"auth"`
	Logging struct {
		Level string `yaml:"level" validate:"required,oneof=debug info warn error"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run tp init first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if strings.HasSuffix(c.Server.BasePath, "/") && c.Server.BasePath != "/" {
		return fmt.Errorf("config.server.base_path must not end with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "teampulse.yml")
}

// GenerateDefault returns default config YAML with a fresh token secret.
func GenerateDefault(orgName string) string {
	return fmt.Sprintf(defaultTemplate, orgName, uuid.NewString())
}

// Default returns the default Config struct for an org.
func Default(orgName string) *Config {
	var cfg Config
	cfg.Org.Name = orgName
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(orgName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `org:
  name: %s

server:
  addr: 127.0.0.1:8484
  base_path: /api/v1

auth:
  secret: %s
  token_ttl_minutes: 30
  allow_actor_header: true

logging:
  level: info
  file: ""
`
