// Package cmd holds the CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Real-time face recognition attendance server",
	Long: `Face Attendance is a real-time attendance system. Cameras and kiosk
clients stream frames over a WebSocket connection; faces are matched
against enrolled employees and attendance entries and exits are
recorded automatically, with lateness and early-exit evaluation.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
