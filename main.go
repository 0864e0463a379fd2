package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"videoSearch/config"
	"videoSearch/initialization"
	"videoSearch/server"
	"videoSearch/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "videoSearch",
	Short: "semantic search over indexed video shots",
	Long: `videoSearch - text, image and clip search over video shots

Shots are indexed with description, transcript and image embeddings.
Queries are filtered, reranked and de-duplicated per source video.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json)")
	rootCmd.AddCommand(serveCmd)
}

// loadRuntime 加载配置、初始化日志并组装组件
func loadRuntime(ctx context.Context) (*initialization.InitializationResult, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := config.InitLogger(cfg.LogLevel, cfg.LogFormat)

	res, err := initialization.NewSystemInitializer(cfg, log).Initialize(ctx)
	if err != nil {
		return nil, log, err
	}
	return res, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, log, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	port, err := utils.ParsePort(res.Config.Port)
	if err != nil {
		return err
	}

	app := server.NewApp(server.Deps{
		Searcher: res.Engine,
		Indexer:  res.Indexer,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("Starting search API")
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
