package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face-verified attendance check-in service",
	Long: `Face Attendance records check-ins after verifying a face image against
the enrolled face templates of the signed-in identity.

It serves a JSON API for check-in, history and stats, and provides commands
to create identities, enroll face images and mint access tokens.`,
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
