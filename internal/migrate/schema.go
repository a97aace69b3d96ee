// 包 migrate：启动期建表
package migrate

import (
	"context"
	"database/sql"

	"spatial-index/internal/logger"
)

// 背景：种子点表首次运行自动创建，导入工具与服务启动都会调用
// 约束：IF NOT EXISTS 保证幂等；z 为空表示二维点
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _spatial_points (
            id BIGSERIAL PRIMARY KEY,
            tree TEXT NOT NULL,
            x DOUBLE PRECISION NOT NULL,
            y DOUBLE PRECISION NOT NULL,
            z DOUBLE PRECISION,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_spatial_points_tree ON _spatial_points(tree, id)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
