package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &logLevelFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "yhdm",
		Short:         "樱花动漫目录查询与播放地址解析",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "配置文件路径（默认依次尝试 ./yhdm.toml、./yhdm.json）")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "日志级别：debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "总是输出 JSON（stdout 非终端时默认如此）")

	for _, cmd := range newCatalogCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
