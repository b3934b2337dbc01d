package cmd

import (
	"Bside/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动厂牌服务",
	Long:  `启动B-Side厂牌站点的HTTP服务器，提供目录API和批量摄取接口`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
