package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/packtool/mscab"
)

func newExtractCommand() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "extract <cabinet>",
		Short: "Extract all files from a cabinet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args[0], outputDir)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "C", ".", "directory to extract into")
	return cmd
}

func runExtract(cabPath, outputDir string) error {
	buf, err := os.ReadFile(cabPath)
	if err != nil {
		return err
	}
	cabinet, err := cab.Parse(buf)
	if err != nil {
		return fmt.Errorf("parse %s: %w", cabPath, err)
	}
	log.Debug().
		Int("folders", len(cabinet.Folders)).
		Int("files", len(cabinet.Files)).
		Uint16("set_id", cabinet.SetId).
		Msg("parsed cabinet")

	modified := make(map[string]os.FileInfo, len(cabinet.Files))
	for _, file := range cabinet.Files {
		modified[file.Name] = file.Stat()
	}

	failed := 0
	for _, result := range cabinet.ExtractAll() {
		if result.Err != nil {
			failed++
			log.Error().Err(result.Err).Int("folder", result.Folder).Msg("folder reconstruction failed")
			continue
		}
		for _, file := range result.Files {
			dest, err := writeExtracted(outputDir, file)
			if err != nil {
				return err
			}
			event := log.Info().
				Str("name", file.Name).
				Int("size", len(file.Data)).
				Str("md5", md5hex(file.Data))
			if info, ok := modified[file.Name]; ok && !info.ModTime().IsZero() {
				event = event.Time("modified", info.ModTime())
			}
			event.Str("path", dest).Msg("extracted")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d folders failed to extract", failed, len(cabinet.Folders))
	}
	return nil
}

// writeExtracted places one file under dir. Cabinet names use backslash
// separators; names that would escape dir fall back to their base name.
func writeExtracted(dir string, file cab.ExtractedFile) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(file.Name, "\\", "/"))
	if filepath.IsAbs(rel) || rel != filepath.Clean(rel) || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(rel)
	}
	dest := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, file.Data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}
