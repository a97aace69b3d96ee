// 包 store：种子点的 PostgreSQL 读写
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spatial-index/internal/logger"
)

var ErrPointDims = errors.New("store: point needs 2 or 3 coordinates")

// Store：持有连接池；仅用于启动期装载与离线导入，不承担树的持久化
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sql.DB { return s.db }

// 文档注释：按写入顺序读取某棵树的全部种子点
// 背景：入口按 id 顺序回放插入，保证重建出的树与导入顺序一致。
// 约束：z 为 NULL 的行返回二维坐标，否则返回三维坐标；维度校验交由索引层。
func (s *Store) LoadPoints(ctx context.Context, tree string) ([][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT x, y, z FROM _spatial_points WHERE tree=$1 ORDER BY id`, tree)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]float64
	for rows.Next() {
		var x, y float64
		var z sql.NullFloat64
		if err := rows.Scan(&x, &y, &z); err != nil {
			return nil, err
		}
		out = append(out, joinXYZ(x, y, z))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_points_loaded", "tree", tree, "n", len(out))
	return out, nil
}

// AddPoints 在单个事务内批量写入，任一点非法则整体回滚
func (s *Store) AddPoints(ctx context.Context, tree string, pts [][]float64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO _spatial_points(tree, x, y, z) VALUES($1,$2,$3,$4)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, p := range pts {
		x, y, z, err := splitXYZ(p)
		if err != nil {
			return 0, fmt.Errorf("point %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, tree, x, y, z); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Debug("db_points_added", "tree", tree, "n", len(pts))
	return len(pts), nil
}

func splitXYZ(p []float64) (float64, float64, sql.NullFloat64, error) {
	switch len(p) {
	case 2:
		return p[0], p[1], sql.NullFloat64{}, nil
	case 3:
		return p[0], p[1], sql.NullFloat64{Float64: p[2], Valid: true}, nil
	}
	return 0, 0, sql.NullFloat64{}, fmt.Errorf("%w: got %d", ErrPointDims, len(p))
}

func joinXYZ(x, y float64, z sql.NullFloat64) []float64 {
	if z.Valid {
		return []float64{x, y, z.Float64}
	}
	return []float64{x, y}
}
