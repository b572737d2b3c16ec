package cmd

import (
	"MeetScribe/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动MeetScribe服务器",
	Long:  `启动MeetScribe会议记录系统的HTTP服务器，提供上传、转录、摘要等API服务`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
