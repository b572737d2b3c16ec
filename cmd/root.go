package cmd

import (
	"fmt"
	"log"
	"os"

	"MeetScribe/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meetscribe",
	Short: "MeetScribe is a meeting recording and summarization service.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting MeetScribe server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
