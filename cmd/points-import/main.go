// points-import：把 CSV 坐标写入种子点表，供服务启动时装载
//
// 用法：points-import [--env file.env] [--tree name] [--csv path]
// 每行 "x,y" 或 "x,y,z"；以 # 开头的行与空行忽略。
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"spatial-index/internal/logger"
	"spatial-index/internal/migrate"
	"spatial-index/internal/store"
	"spatial-index/internal/utils"
)

const batchSize = 1000

func main() {
	envFile := ".env"
	tree := os.Getenv("POINTS_TREE")
	path := os.Getenv("POINTS_CSV")
	for i := 1; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--env" && i+1 < len(os.Args):
			envFile = os.Args[i+1]
			i++
		case os.Args[i] == "--tree" && i+1 < len(os.Args):
			tree = os.Args[i+1]
			i++
		case os.Args[i] == "--csv" && i+1 < len(os.Args):
			path = os.Args[i+1]
			i++
		}
	}
	_ = godotenv.Load(envFile)
	l := logger.Setup()
	if tree == "" {
		tree = os.Getenv("POINTS_TREE")
	}
	if path == "" {
		path = os.Getenv("POINTS_CSV")
	}
	if tree == "" || path == "" {
		fmt.Println("usage: points-import --tree <name> --csv <file>")
		os.Exit(2)
	}

	f, err := os.Open(path)
	if err != nil {
		l.Error("csv_open_error", "path", path, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)

	total := 0
	err = readPoints(f, batchSize, func(batch [][]float64) error {
		n, err := st.AddPoints(ctx, tree, batch)
		total += n
		l.Info("import_batch", "tree", tree, "n", n, "total", total)
		return err
	})
	if err != nil {
		l.Error("import_error", "tree", tree, "imported", total, "err", err)
		os.Exit(1)
	}
	l.Info("import_done", "tree", tree, "total", total)
}

// readPoints 按批回调；批内点数不超过 size，最后一批可能更少
func readPoints(r io.Reader, size int, flush func([][]float64) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	batch := make([][]float64, 0, size)
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		line++
		p, err := parseRecord(rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", line, err)
		}
		batch = append(batch, p)
		if len(batch) == size {
			if err := flush(batch); err != nil {
				return err
			}
			batch = make([][]float64, 0, size)
		}
	}
	if len(batch) > 0 {
		return flush(batch)
	}
	return nil
}

func parseRecord(rec []string) ([]float64, error) {
	if len(rec) != 2 && len(rec) != 3 {
		return nil, fmt.Errorf("want 2 or 3 fields, got %d", len(rec))
	}
	p := make([]float64, len(rec))
	for i, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		p[i] = v
	}
	return p, nil
}
