package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/andreyvit/reflser"
	"github.com/andreyvit/reflser/fsutil"
)

func convertCmd() *cobra.Command {
	var backup bool
	cmd := &cobra.Command{
		Use:   "convert <source> <destination>",
		Short: "Re-encode a document in the format implied by the destination extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := newSerializer(cfg)
			src, dst := args[0], args[1]
			doc, err := s.LoadDocument(src)
			if err != nil {
				return err
			}
			out := &reflser.Document{Path: dst, Sections: doc.Sections}
			if err := s.SaveDocument(out, backup || cfg.Backup); err != nil {
				return err
			}
			n, err := copySidecars(reflser.SidecarDir(src), reflser.SidecarDir(dst))
			if err != nil {
				return err
			}
			cmd.Printf("%s: %v, %d sections, %d sidecar files\n", dst, out.State, doc.Sections.Len(), n)
			if doc.State == reflser.RolledBack {
				cmd.PrintErrf("%s: %v, restored from %s\n", src, doc.State, s.BackupPath(src))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", false, "keep a backup of the destination")
	return cmd
}

func copySidecars(srcDir, dstDir string) (int, error) {
	if filepath.Clean(srcDir) == filepath.Clean(dstDir) {
		return 0, nil
	}
	entries, err := os.ReadDir(srcDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dstDir, 0o777); err != nil {
		return 0, err
	}
	var n int
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := fsutil.CopyFile(filepath.Join(srcDir, e.Name()), filepath.Join(dstDir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
