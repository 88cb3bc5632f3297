// Package main provides the audiofetch command: the HTTP service and a
// one-shot downloader sharing the same download pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "audiofetch",
	Short: "Download the audio track of YouTube videos",
	Long: `audiofetch extracts the audio of a YouTube video into mp3, wav, m4a,
flac or ogg.

Configuration is read from the environment (PORT, MONGO_URL, DB_NAME,
TEMP_DIR, EXTRACTOR, ...).

Example:
  audiofetch serve
  audiofetch fetch "https://youtu.be/dQw4w9WgXcQ" --format flac --out ./music`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
