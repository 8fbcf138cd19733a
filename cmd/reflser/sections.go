package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreyvit/reflser"
)

func sectionsCmd() *cobra.Command {
	var topOnly, dump bool
	cmd := &cobra.Command{
		Use:   "sections <document>",
		Short: "List the sections of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := newSerializer(cfg)
			doc, err := s.LoadDocument(args[0])
			if err != nil {
				return err
			}
			if doc.State == reflser.RolledBack {
				cmd.PrintErrf("%s: %v, restored from %s\n", doc.Path, doc.State, s.BackupPath(doc.Path))
			}
			if dump {
				cmd.Print(reflser.Dump(doc, reflser.DumpAll))
				return nil
			}
			for _, key := range doc.SectionKeys() {
				id, typeID, err := reflser.DecodeSectionKey(key)
				if err != nil {
					return err
				}
				if topOnly && id.IsNested() {
					continue
				}
				attrs, err := s.Attributes(doc, id)
				if err != nil {
					return err
				}
				cmd.Printf("%s\t%s\t%s\n", id, typeID, formatAttrs(attrs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&topOnly, "top", false, "only list top-level sections")
	cmd.Flags().BoolVar(&dump, "dump", false, "print every field of every section")
	return cmd
}

func formatAttrs(attrs reflser.Attributes) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var buf strings.Builder
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%s=%q", k, attrs[k])
	}
	return buf.String()
}
