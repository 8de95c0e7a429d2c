package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/adaptd/internal/httpapi"
	"github.com/abhisek/adaptd/internal/sink"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides ADAPTD_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Addr = v
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		rdb  *redis.Client
		pubs []sink.Publisher
	)
	if cfg.RedisAddr != "" {
		rdb, err = sink.DialRedis(ctx, cfg.RedisAddr, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		pubs = append(pubs, sink.NewRedisPublisher(rdb, cfg.RedisChannel))
	}
	mirror, err := sink.NewNeo4jMirror(ctx, cfg.Neo4j, log)
	if err != nil {
		return err
	}
	if mirror != nil {
		pubs = append(pubs, mirror)
	}
	pub := sink.Multi(pubs...)
	defer func() {
		if err := pub.Close(context.Background()); err != nil {
			log.Warn("close publishers", "error", err)
		}
	}()

	classifier := buildClassifier(ctx, cfg, st.EventRepo(), rdb, log)
	eng, err := buildEngine(cfg, st, classifier, pub, log)
	if err != nil {
		return err
	}

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		LearnerHandler: httpapi.NewLearnerHandler(eng),
		Logger:         log,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "strategy", cfg.Engine.Policy.Strategy, "classifier", classifier.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
