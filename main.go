package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"communityhub/api"
	"communityhub/app"
	"communityhub/cache"
	"communityhub/content"
	"communityhub/engagement"
	"communityhub/kafka"
	"communityhub/media"
	"communityhub/notify"
	"communityhub/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "communityhub",
		Short:         "Client-side data layer of the community hub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	root.AddCommand(serveCmd(), parseCmd(), exportCSVCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			log, err := app.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg app.Config, log *zap.Logger) error {
	client, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithToken(cfg.API.Token),
		api.WithLogger(log.Named("api")))
	if err != nil {
		return err
	}

	store, err := cache.OpenStore(cfg.Cache, cfg.Redis)
	if err != nil {
		return err
	}
	queries := cache.NewClient(store, cache.WithTTL(cfg.Cache.TTL), cache.WithLogger(log.Named("cache")))
	defer queries.Close()

	recorder := notify.NewRecorder(100)
	notifiers := notify.Multi{recorder, notify.NewLogNotifier(log.Named("notify"))}
	if cfg.Kafka.Enabled() {
		if err := kafka.EnsureTopic(cfg.Kafka); err != nil {
			log.Warn("ensure kafka topic", zap.Error(err))
		}
		producer := kafka.NewNotifier(cfg.Kafka, log.Named("kafka"))
		defer producer.Close()
		notifiers = append(notifiers, producer)
	}

	opts := []engagement.Option{engagement.WithNotifier(notifiers), engagement.WithLogger(log.Named("engagement"))}
	deps := app.Deps{API: client, Cache: queries, Notifier: notifiers, Recorder: recorder, Log: log.Named("gateway")}

	if cfg.Elasticsearch.Enabled() {
		index, err := search.New(cfg.Elasticsearch, log.Named("search"))
		if err != nil {
			return err
		}
		if err := index.EnsureIndex(ctx); err != nil {
			return err
		}
		opts = append(opts, engagement.WithIndexer(index))
		deps.Searcher = index
	}
	if cfg.Minio.Enabled() {
		uploader, err := media.NewUploader(cfg.Minio, log.Named("media"))
		if err != nil {
			return err
		}
		deps.Uploader = uploader
	}
	if cfg.API.Token != "" {
		if me, err := client.Me(ctx); err == nil {
			opts = append(opts, engagement.WithViewer(me.Author()))
		} else {
			log.Warn("resolve signed-in user", zap.Error(err))
		}
	}

	deps.Engagement = engagement.New(queries, client, opts...)
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           app.NewServer(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("address", cfg.Server.Address), zap.String("api", cfg.API.BaseURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [text]",
		Short: "Print the segments of post text as JSON (reads stdin without args)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(content.Parse(text))
		},
	}
}

func exportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv <eventID> [file]",
		Short: "Download the attendee list of an event",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			client, err := api.New(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout), api.WithToken(cfg.API.Token))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 2 {
				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			n, err := client.ExportAttendeesCSV(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, args[1])
			}
			return nil
		},
	}
}
