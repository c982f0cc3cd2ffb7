package cmd

import (
	"context"
	"fmt"
	"log"

	"rabbithole/cache"
	"rabbithole/config"
	"rabbithole/core/catalog"
	"rabbithole/core/wiki"
	"rabbithole/db"
	"rabbithole/repository"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "从Wiki同步曲库",
	Long:  `拉取Wiki曲库API的全部歌曲并写入本地数据库。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.Connect(cfg); err != nil {
			log.Fatalf("无法连接到数据库: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			log.Fatalf("数据库迁移失败: %v", err)
		}

		// Redis是可选的，同步没有缓存也能工作
		if err := cache.ConnectRedis(cfg); err != nil {
			log.Printf("Redis不可用，跳过缓存: %v", err)
		} else {
			defer cache.CloseRedis()
		}

		wikiClient := wiki.NewClient(cfg.WikiAPIURL)
		wikiClient.SetTimeout(cfg.WikiTimeout)
		songRepo := repository.NewGormSongRepository(db.DB)
		provider := catalog.NewProvider(songRepo, wikiClient, cache.NewWikiCache(cfg.WikiCacheTTL))

		count, err := provider.Sync(context.Background())
		if err != nil {
			log.Fatalf("曲库同步失败: %v", err)
		}
		fmt.Printf("曲库同步完成，共同步 %d 首歌曲。\n", count)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
