// 程序入口：读取配置、装载树目录与种子点、初始化可选依赖并启动服务；API 注册在 internal/api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"spatial-index/internal/api"
	"spatial-index/internal/config"
	"spatial-index/internal/index"
	"spatial-index/internal/ipgeo"
	"spatial-index/internal/logger"
	"spatial-index/internal/metrics"
	"spatial-index/internal/middleware"
	"spatial-index/internal/migrate"
	"spatial-index/internal/store"
	"spatial-index/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg := config.FromEnv()
	l.Debug("config_loaded", "addr", cfg.Addr, "base", cfg.APIBase, "catalog", cfg.CatalogPath, "capacity", cfg.DefaultCapacity, "max_depth", cfg.MaxDepth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := index.NewRegistry()
	defs, err := config.LoadCatalog(cfg.CatalogPath, cfg)
	if err != nil {
		l.Error("catalog_error", "err", err)
		os.Exit(1)
	}
	n, err := reg.Load(defs)
	if err != nil {
		l.Error("catalog_load_error", "err", err)
	}
	l.Info("catalog_ready", "trees", n, "defined", len(defs))

	if cfg.SeedFromDB {
		seed(ctx, l, reg)
	} else {
		l.Info("seed_skipped")
	}

	var rc *redis.Client
	if cfg.RedisEnabled {
		if rc, err = utils.OpenRedisFromEnv(ctx); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
			defer rc.Close()
		}
	} else {
		l.Info("redis_disabled")
	}

	var geo api.Locator
	if cfg.GeoIPPath != "" {
		if r, err := ipgeo.Open(cfg.GeoIPPath); err != nil {
			l.Error("geoip_open_error", "err", err)
		} else {
			l.Info("geoip_ready", "path", cfg.GeoIPPath)
			geo = r
			defer r.Close()
		}
	}

	apiMux := api.BuildRoutes(reg, api.Options{
		Cache:           api.NewQueryCache(cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second, rc),
		Geo:             geo,
		AdminToken:      cfg.AdminToken,
		DefaultCapacity: cfg.DefaultCapacity,
		MaxDepth:        cfg.MaxDepth,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, cfg.RateLimit, cfg.RateLimitQPS)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()

	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}

// 文档注释：从 PostgreSQL 回放种子点
// 背景：目录中的每棵树按写入顺序重放 _spatial_points 中的点；数据库不可用时仅告警，服务照常以空树启动。
// 约束：维度不符或越界的点计入 rejected，不中断装载。
func seed(ctx context.Context, l *slog.Logger, reg *index.Registry) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		return
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
		return
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		return
	}
	st := store.AttachDB(db)
	for _, x := range reg.List() {
		pts, err := st.LoadPoints(ctx, x.Name())
		if err != nil {
			l.Error("seed_load_error", "tree", x.Name(), "err", err)
			continue
		}
		accepted, rejected := 0, 0
		for _, p := range pts {
			ok, err := x.Insert(p)
			if err != nil || !ok {
				rejected++
				continue
			}
			accepted++
		}
		metrics.SeedPointsTotal.WithLabelValues(x.Name()).Add(float64(accepted))
		l.Info("seed_done", "tree", x.Name(), "accepted", accepted, "rejected", rejected)
	}
}
