package main

import (
	"github.com/spf13/cobra"

	"github.com/andreyvit/reflser"
)

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <document>...",
		Short: "Overwrite documents with their backups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := newSerializer(cfg)
			for _, path := range args {
				if err := s.Restore(path); err != nil {
					return err
				}
				cmd.Printf("%s: %v from %s\n", path, reflser.RolledBack, s.BackupPath(path))
			}
			return nil
		},
	}
}
