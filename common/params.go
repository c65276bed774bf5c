package common

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"vincit.fi/jpeg-rotator/common/logger"
)

const (
	KeyConfigFile    = "config"
	KeyLogLevel      = "log-level"
	KeyTempDir       = "temp-dir"
	KeyQuality       = "quality"
	KeyThumbnailSize = "thumbnail-size"
	KeyAssumeYes     = "yes"
)

const (
	envPrefix      = "JPEG_ROTATOR"
	configFileName = ".jpeg-rotator"
	configFileType = "yaml"

	defaultLogLevel      = "INFO"
	defaultQuality       = 95
	defaultThumbnailSize = 140
)

type Params struct {
	logLevel      string
	rootPath      string
	tempDir       string
	quality       int
	thumbnailSize int
	assumeYes     bool
}

func NewEmptyParams() *Params {
	return &Params{
		logLevel:      defaultLogLevel,
		rootPath:      "",
		tempDir:       os.TempDir(),
		quality:       defaultQuality,
		thumbnailSize: defaultThumbnailSize,
		assumeYes:     false,
	}
}

// NewViper returns a viper instance with the defaults set and the
// JPEG_ROTATOR_ environment variables bound.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyTempDir, os.TempDir())
	v.SetDefault(KeyQuality, defaultQuality)
	v.SetDefault(KeyThumbnailSize, defaultThumbnailSize)
	v.SetDefault(KeyAssumeYes, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags adds the persistent flags shared by all commands and binds
// them to v. Flags given on the command line win over environment and
// config file values.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.String(KeyConfigFile, "", "Config file (default $HOME/"+configFileName+"."+configFileType+")")
	flags.String(KeyLogLevel, defaultLogLevel, "Log level: ERROR, WARN, INFO, DEBUG, TRACE")
	flags.String(KeyTempDir, os.TempDir(), "Directory for backups and rotated files before they replace the originals")
	flags.Int(KeyQuality, defaultQuality, "JPEG quality of the rotated images (1-100)")
	flags.Int(KeyThumbnailSize, defaultThumbnailSize, "Thumbnail size in pixels")
	flags.BoolP(KeyAssumeYes, "y", false, "Overwrite the original files without asking")
	return v.BindPFlags(flags)
}

// LoadParams reads the optional config file and resolves the parameters
// for rootPath.
func LoadParams(v *viper.Viper, rootPath string) (*Params, error) {
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	params := &Params{
		logLevel:      v.GetString(KeyLogLevel),
		rootPath:      rootPath,
		tempDir:       v.GetString(KeyTempDir),
		quality:       v.GetInt(KeyQuality),
		thumbnailSize: v.GetInt(KeyThumbnailSize),
		assumeYes:     v.GetBool(KeyAssumeYes),
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

func readConfigFile(v *viper.Viper) error {
	if configFile := v.GetString(KeyConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	logger.Debug.Printf("Using config file '%s'", v.ConfigFileUsed())
	return nil
}

func (s *Params) Validate() error {
	if s.quality < 1 || s.quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, was %d", s.quality)
	}
	if s.thumbnailSize < 1 {
		return fmt.Errorf("thumbnail size must be positive, was %d", s.thumbnailSize)
	}
	if s.tempDir == "" {
		return errors.New("temp dir must be set")
	}
	return nil
}

func (s *Params) LogLevel() string {
	return s.logLevel
}

func (s *Params) RootPath() string {
	return s.rootPath
}

func (s *Params) TempDir() string {
	return s.tempDir
}

func (s *Params) Quality() int {
	return s.quality
}

func (s *Params) ThumbnailSize() int {
	return s.thumbnailSize
}

func (s *Params) AssumeYes() bool {
	return s.assumeYes
}
