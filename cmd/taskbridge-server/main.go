package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	server "github.com/mkhoudour/taskbridge/internal"
	"github.com/mkhoudour/taskbridge/internal/channelproject"
	"github.com/mkhoudour/taskbridge/internal/config"
	"github.com/mkhoudour/taskbridge/internal/interaction"
	"github.com/mkhoudour/taskbridge/internal/orchestrator"
	"github.com/mkhoudour/taskbridge/internal/slackclient"
	taskrepo "github.com/mkhoudour/taskbridge/internal/task/repositoryimpl"
	"github.com/mkhoudour/taskbridge/internal/wrike"
	"github.com/mkhoudour/taskbridge/pkg/clog"
	"github.com/mkhoudour/taskbridge/pkg/storage"
)

var (
	app = kingpin.New("taskbridge-server", "Slack to Wrike task bridge")

	serveCmd  = app.Command("serve", "Start the bridge server").Default()
	serveAddr = serveCmd.Flag("addr", "Address to bind to (overrides env)").String()
	servePort = serveCmd.Flag("port", "Port to bind to (overrides env)").String()
	logLevel  = app.Flag("log-level", "Log level (overrides env)").String()

	checkCmd = app.Command("check", "Probe Wrike and exit")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	if *serveAddr != "" {
		env.HTTPHost = *serveAddr
	}
	if *servePort != "" {
		env.HTTPPort = *servePort
	}
	if *logLevel != "" {
		env.LogLevel = *logLevel
	}

	setupLogger(env)

	switch command {
	case serveCmd.FullCommand():
		run(env)
	case checkCmd.FullCommand():
		runCheck(env)
	}
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func newWrikeClient(env *config.Env) *wrike.Client {
	opts := []wrike.Option{
		wrike.WithCustomFields(env.AssigneeFieldID, env.DescriptionFieldID),
	}
	if env.APIURL != "" {
		opts = append(opts, wrike.WithBaseURL(env.APIURL))
	}
	return wrike.NewClient(env.AccessToken, opts...)
}

func run(env *config.Env) {
	// Setup storage
	var (
		store storage.Storage
		err   error
	)
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// The durable mirror sits behind the failover wrapper so a storage
	// outage degrades to the in-memory store instead of failing workflows.
	repo := taskrepo.NewFailoverRepository(taskrepo.NewYAMLRepository(store))

	mappings, err := channelproject.NewStore(env.MappingFile, env.DefaultFolderID)
	if err != nil {
		slog.Error("failed to load channel mappings", "error", err)
		os.Exit(1)
	}

	wrikeClient := newWrikeClient(env)
	slackClient := slackclient.New(env.BotToken)

	orch := orchestrator.New(wrikeClient, slackClient, mappings, repo)
	router := interaction.NewRouter(orch, slackClient)
	srv := server.NewServer(env, router, orch, slackClient)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := mappings.Watch(ctx); err != nil && ctx.Err() == nil {
			slog.Error("channel mapping watcher stopped", "error", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// runCheck probes Wrike connectivity with the configured token and reports
// the folders the token can see.
func runCheck(env *config.Env) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := newWrikeClient(env)
	if err := client.TestConnection(ctx); err != nil {
		slog.Error("wrike connectivity check failed", "error", err)
		os.Exit(1)
	}
	folders, err := client.ListFolders(ctx)
	if err != nil {
		slog.Error("failed to list folders", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wrike connection OK, %d folders visible\n", len(folders))
	for _, f := range folders {
		fmt.Printf("  %s  %s\n", f.ID, f.Title)
	}
}
