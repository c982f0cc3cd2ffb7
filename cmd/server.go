package cmd

import (
	"log"

	"rabbithole/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting rabbithole server...")
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
