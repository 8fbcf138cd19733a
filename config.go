package reflser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk form of Options, used by tools.
type Config struct {
	RepositoryRoot string  `yaml:"repository_root"`
	Format         string  `yaml:"format"`
	Backup         bool    `yaml:"backup"`
	BackupExt      string  `yaml:"backup_ext"`
	SidecarExt     string  `yaml:"sidecar_ext"`
	Sidecars       string  `yaml:"sidecars"`
	MaxPathLen     int     `yaml:"max_path_len"`
	Epsilon        float64 `yaml:"epsilon"`

	// dir is the directory of the config file; relative repository roots
	// are resolved against it.
	dir string
}

const (
	SidecarsFiles = "files"
	SidecarsBolt  = "bolt"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.dir = filepath.Dir(path)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Format != "" {
		if _, err := ParseFormat(cfg.Format); err != nil {
			return err
		}
	}
	switch cfg.Sidecars {
	case "", SidecarsFiles, SidecarsBolt:
	default:
		return fmt.Errorf("unsupported sidecars backend: %s", cfg.Sidecars)
	}
	if cfg.BackupExt != "" && !strings.HasPrefix(cfg.BackupExt, ".") {
		return fmt.Errorf("backup_ext must start with a dot: %s", cfg.BackupExt)
	}
	if strings.ContainsAny(cfg.SidecarExt, `./\`) {
		return fmt.Errorf("sidecar_ext must be a bare extension: %s", cfg.SidecarExt)
	}
	if cfg.MaxPathLen < 0 {
		return fmt.Errorf("max_path_len must not be negative: %d", cfg.MaxPathLen)
	}
	if cfg.Epsilon < 0 {
		return fmt.Errorf("epsilon must not be negative: %v", cfg.Epsilon)
	}
	return nil
}

// Options converts the config into serializer options.
func (cfg *Config) Options() Options {
	opt := Options{
		BackupExt:  cfg.BackupExt,
		SidecarExt: cfg.SidecarExt,
		MaxPathLen: cfg.MaxPathLen,
		Epsilon:    cfg.Epsilon,
	}
	if cfg.Format != "" {
		opt.Format, _ = ParseFormat(cfg.Format)
	}
	if root := cfg.RepositoryRoot; root != "" {
		if !filepath.IsAbs(root) && cfg.dir != "" {
			root = filepath.Join(cfg.dir, root)
		}
		opt.RepositoryRoot = root
	}
	if cfg.Sidecars == SidecarsBolt {
		opt.Sidecars = BoltSidecars{Ext: cfg.SidecarExt}
	}
	return opt
}
