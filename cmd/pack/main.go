package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/xiaoqiao/device-tools/internal/pack"
	"github.com/xiaoqiao/device-tools/pkg/file"
)

func main() {
	var (
		projectRoot string
		archiveDir  string
		languages   []string
		dryRun      bool
	)

	rootCmd := &cobra.Command{
		Use:   "pack",
		Short: "Build and archive firmware binaries per language",
		Long:  "Rewrites the sdkconfig language switch, builds the firmware, and archives the binary under its versioned name, once per requested language.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			packager := pack.NewPackager(projectRoot, archiveDir, file.NewFileService(), logger)

			codes := languages
			if len(codes) == 0 {
				codes = pack.LanguageCodes()
			}

			return packager.PackAll(cmd.Context(), codes, dryRun)
		},
	}

	rootCmd.Flags().StringVar(&projectRoot, "project", ".", "Firmware project root (contains CMakeLists.txt and sdkconfig)")
	rootCmd.Flags().StringVar(&archiveDir, "archive", "archive", "Directory receiving the renamed binaries")
	rootCmd.Flags().StringArrayVarP(&languages, "language", "l", nil, "Language code to build (repeatable, default all)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Rewrite configs without building")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
