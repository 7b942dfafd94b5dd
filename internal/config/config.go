package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gubarz/corg/internal/corg"
	"github.com/gubarz/corg/internal/markers"
)

// Config holds the application configuration
type Config struct {
	Markers        string `mapstructure:"markers"`
	DeleteBlocks   bool   `mapstructure:"delete_blocks"`
	WarnIfNoBlocks bool   `mapstructure:"warn_if_no_blocks"`
	OmitOutput     bool   `mapstructure:"omit_output"`
	Check          bool   `mapstructure:"check"`
	Checksum       bool   `mapstructure:"checksum"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	Color          string `mapstructure:"color"`
}

// C is the global config instance
var C Config

// flagKeys maps command-line flag names onto config keys
var flagKeys = map[string]string{
	"markers":     "markers",
	"delete":      "delete_blocks",
	"warn-empty":  "warn_if_no_blocks",
	"omit-output": "omit_output",
	"check":       "check",
	"checksum":    "checksum",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"color":       "color",
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("markers", markers.Default().String())
	viper.SetDefault("delete_blocks", false)
	viper.SetDefault("warn_if_no_blocks", false)
	viper.SetDefault("omit_output", false)
	viper.SetDefault("check", false)
	viper.SetDefault("checksum", false)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("color", "auto") // auto, on, off
}

// Init initializes configuration with viper
func Init() error {
	SetDefaults()

	viper.SetConfigName("corg")
	viper.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "corg"))
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CORG")
	viper.AutomaticEnv()

	// Try to read config, but don't fail if not found or malformed
	_ = viper.ReadInConfig()

	return viper.Unmarshal(&C)
}

// BindFlags binds every known flag present in fs to its config key
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

// GetMarkers returns the configured marker set
func GetMarkers() (markers.Set, error) {
	return markers.Parse(viper.GetString("markers"))
}

// GetLogLevel returns the log level
func GetLogLevel() string {
	return viper.GetString("log_level")
}

// GetLogFormat returns the log format
func GetLogFormat() string {
	return viper.GetString("log_format")
}

// GetColor returns the color mode: auto, on or off
func GetColor() string {
	return viper.GetString("color")
}

// ProcessorOptions assembles processor options from the current settings
func ProcessorOptions() (corg.Options, error) {
	set, err := GetMarkers()
	if err != nil {
		return corg.Options{}, &corg.UsageError{Err: err}
	}
	return corg.Options{
		DeleteBlocks:   viper.GetBool("delete_blocks"),
		WarnIfNoBlocks: viper.GetBool("warn_if_no_blocks"),
		OmitOutput:     viper.GetBool("omit_output"),
		CheckOnly:      viper.GetBool("check"),
		Checksum:       viper.GetBool("checksum"),
		Markers:        set,
	}, nil
}
