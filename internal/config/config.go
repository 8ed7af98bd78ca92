package config

import (
	"fmt"
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/staffdesk/messenger/internal/domain"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HttpAddr    string      `yaml:"http_addr" validate:"required"`
	HSTS        bool        `yaml:"hsts"`
	LogLevel    string      `yaml:"log_level"`
	LogJSON     bool        `yaml:"log_json"`
	RosterFile  string      `yaml:"roster_file" validate:"required"`
	Storage     Storage     `yaml:"storage"`
	Attachments Attachments `yaml:"attachments"`
	Cors        Cors        `yaml:"cors"`
}

type Storage struct {
	Backend    string `yaml:"backend" validate:"required,oneof=memory fs pg sqlite redis"`
	Key        string `yaml:"key"`
	FsPath     string `yaml:"fs_path" validate:"required_if=Backend fs"`
	SqlitePath string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
}

type Attachments struct {
	Dir             string `yaml:"dir" validate:"required"`
	MaxSizeBytes    uint64 `yaml:"max_size_bytes" validate:"lte=10485760"`
	PreviewMaxPx    int    `yaml:"preview_max_px" validate:"gte=0"`
	// width*height*4 limit of an image decoded for preview
	MaxDecodedBytes int64  `yaml:"max_decoded_bytes" validate:"gte=0"`
}

type Cors struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Private struct {
	Pg    Pg    `yaml:"pg"`
	Redis Redis `yaml:"redis"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

// ConnString is the lib/pq keyword/value connection string.
func (p Pg) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Dbname)
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

const (
	DefaultStorageKey   = "messenger_chats"
	DefaultPreviewMaxPx = 320
)

func (c *Config) applyDefaults() {
	if c.Public.Storage.Key == "" {
		c.Public.Storage.Key = DefaultStorageKey
	}
	if c.Public.Attachments.MaxSizeBytes == 0 {
		c.Public.Attachments.MaxSizeBytes = domain.MaxAttachmentSize
	}
	if c.Public.Attachments.PreviewMaxPx == 0 {
		c.Public.Attachments.PreviewMaxPx = DefaultPreviewMaxPx
	}
	if c.Public.LogLevel == "" {
		c.Public.LogLevel = "info"
	}
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file: " + configPath)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file " + configPath + ": " + err.Error())
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder and panics
// on a missing file or an invalid value.
func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{Public: public, Private: private}
	cfg.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		panic("invalid config: " + err.Error())
	}
	return cfg
}
