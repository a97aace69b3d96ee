// 包 config：从环境变量读取服务参数，从 YAML 目录文件读取预建树定义
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"spatial-index/internal/index"
	"spatial-index/internal/spatial"
)

// 文档注释：服务配置
// 背景：沿用环境变量 + 默认值的配置方式，.env 由入口通过 godotenv 预先载入。
// 约束：解析失败的数值项静默回退到默认值，与连接参数的处理方式一致。
// SPATIAL_MAX_DEPTH 须为正数：树定义里 max_depth 0 表示取默认值，0 无法经由环境变量表达“根即叶子”。
type Config struct {
	Addr            string
	APIBase         string
	CatalogPath     string
	DefaultCapacity int
	MaxDepth        int
	SeedFromDB      bool
	CacheSize       int
	CacheTTLSeconds int
	RedisEnabled    bool
	GeoIPPath       string
	AdminToken      string
	RateLimit       bool
	RateLimitQPS    int
}

func FromEnv() Config {
	return Config{
		Addr:            envStr("ADDR", ":8080"),
		APIBase:         strings.TrimRight(envStr("API_BASE", "/api"), "/"),
		CatalogPath:     envStr("SPATIAL_CATALOG", filepath.Join("data", "trees.yaml")),
		DefaultCapacity: envInt("SPATIAL_DEFAULT_CAPACITY", 4),
		MaxDepth:        envInt("SPATIAL_MAX_DEPTH", spatial.DefaultMaxDepth),
		SeedFromDB:      os.Getenv("SPATIAL_SEED_FROM_DB") == "true",
		CacheSize:       envIntMin("QUERY_CACHE_SIZE", 4096, 0),
		CacheTTLSeconds: envInt("QUERY_CACHE_TTL_S", 60),
		RedisEnabled:    os.Getenv("REDIS_ENABLED") == "true",
		GeoIPPath:       os.Getenv("GEOIP_CITY_PATH"),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		RateLimit:       os.Getenv("RATE_LIMIT_ENABLED") == "true",
		RateLimitQPS:    envInt("RATE_LIMIT_QPS", 200),
	}
}

func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int { return envIntMin(k, def, 1) }

// envIntMin：小于 min 或无法解析时回退到默认值；QUERY_CACHE_SIZE=0 表示关闭本地缓存
func envIntMin(k string, def, floor int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= floor {
			return n
		}
	}
	return def
}

type catalogFile struct {
	Trees []index.Definition `yaml:"trees"`
}

// 文档注释：读取树目录
// 背景：预建树的边界与容量写在 YAML 中，启动时批量创建；容量/深度缺省时取服务默认值。
// 约束：文件不存在视为空目录；格式错误返回错误，由入口决定是否退出。
func LoadCatalog(path string, cfg Config) ([]index.Definition, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	out := make([]index.Definition, 0, len(f.Trees))
	for _, d := range f.Trees {
		out = append(out, d.WithDefaults(cfg.DefaultCapacity, cfg.MaxDepth))
	}
	return out, nil
}
