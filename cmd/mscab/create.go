package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/packtool/mscab"
)

// manifest describes the layout of a cabinet to create: folders of files,
// in archive order.
type manifest struct {
	Folders []manifestFolder `yaml:"folders"`
}

type manifestFolder struct {
	Files []manifestFile `yaml:"files"`
}

type manifestFile struct {
	Path string `yaml:"path"`
	// Name inside the cabinet; defaults to the base name of Path.
	Name string `yaml:"name,omitempty"`
}

func newCreateCommand() *cobra.Command {
	var (
		manifestPath string
		noCompress   bool
		setId        uint16
	)
	cmd := &cobra.Command{
		Use:   "create <out.cab>",
		Short: "Create a cabinet from a manifest of folders and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args[0], manifestPath, !noCompress, setId)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "yaml manifest listing folders and files")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "store folder data uncompressed")
	cmd.Flags().Uint16Var(&setId, "set-id", cab.DefaultSetId, "cabinet set identifier")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func runCreate(outPath, manifestPath string, compress bool, setId uint16) error {
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	var layout manifest
	if err := yaml.Unmarshal(manifestData, &layout); err != nil {
		return fmt.Errorf("parse manifest %s: %w", manifestPath, err)
	}
	if len(layout.Folders) == 0 {
		return fmt.Errorf("manifest %s lists no folders", manifestPath)
	}

	folders := make([]cab.FolderSpec, 0, len(layout.Folders))
	for _, folder := range layout.Folders {
		var spec cab.FolderSpec
		for _, file := range folder.Files {
			data, err := os.ReadFile(file.Path)
			if err != nil {
				return err
			}
			info, err := os.Stat(file.Path)
			if err != nil {
				return err
			}
			name := file.Name
			if name == "" {
				name = filepath.Base(file.Path)
			}
			log.Debug().Str("name", name).Int("size", len(data)).Str("md5", md5hex(data)).Msg("adding file")
			spec.Files = append(spec.Files, cab.FileSpec{
				Name:     name,
				Data:     data,
				Modified: info.ModTime(),
			})
		}
		folders = append(folders, spec)
	}

	buf, err := cab.BuildWith(folders, compress, cab.BuildOptions{SetId: setId})
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return err
	}
	log.Info().Str("path", outPath).Int("size", len(buf)).Int("folders", len(folders)).Msg("wrote cabinet")
	return nil
}
