package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/andreyvit/reflser"
)

const defaultConfigFile = "reflser.yaml"

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:          "reflser",
		Short:        "Inspect and maintain reflser documents",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./"+defaultConfigFile+" if present)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
	root.AddCommand(sectionsCmd())
	root.AddCommand(convertCmd())
	root.AddCommand(restoreCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config, or the default config file if it exists.
func loadConfig() (*reflser.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); errors.Is(err, fs.ErrNotExist) {
			return &reflser.Config{}, nil
		}
		path = defaultConfigFile
	}
	return reflser.LoadConfig(path)
}

// newSerializer builds a serializer with an empty registry; the commands
// operate on raw documents and never construct objects.
func newSerializer(cfg *reflser.Config) *reflser.Serializer {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opt := cfg.Options()
	opt.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return reflser.New(reflser.NewRegistry(), opt)
}
