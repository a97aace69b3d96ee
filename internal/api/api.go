// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"spatial-index/internal/index"
	"spatial-index/internal/ipgeo"
	"spatial-index/internal/logger"
	"spatial-index/internal/metrics"
	"spatial-index/internal/spatial"
)

// Locator：IP → (经度, 纬度)；未配置 GeoIP 时为 nil
type Locator interface {
	Locate(ip string) (float64, float64, error)
}

// Options：路由依赖的可选参数
type Options struct {
	Cache           *QueryCache
	Geo             Locator
	AdminToken      string
	DefaultCapacity int
	MaxDepth        int
}

type server struct {
	reg *index.Registry
	opt Options
}

type treeInfo struct {
	Definition index.Definition `json:"definition" cbor:"definition"`
	Stats      spatial.Stats    `json:"stats" cbor:"stats"`
	Version    uint64           `json:"version" cbor:"version"`
}

type pointsBody struct {
	Points [][]float64 `json:"points" cbor:"points"`
}

type insertResult struct {
	Accepted []bool `json:"accepted" cbor:"accepted"`
	Inserted int    `json:"inserted" cbor:"inserted"`
}

type removeResult struct {
	Removed []bool `json:"removed" cbor:"removed"`
	Count   int    `json:"count" cbor:"count"`
}

type ipInsertResult struct {
	IP       string    `json:"ip" cbor:"ip"`
	Point    []float64 `json:"point" cbor:"point"`
	Accepted bool      `json:"accepted" cbor:"accepted"`
}

type queryResult struct {
	Tree    string      `json:"tree" cbor:"tree"`
	Version uint64      `json:"version" cbor:"version"`
	Count   int         `json:"count" cbor:"count"`
	Points  [][]float64 `json:"points" cbor:"points"`
	Cached  bool        `json:"cached" cbor:"cached"`
}

// 文档注释：构建并返回 API 路由
// 背景：独立 ServeMux 便于在主入口挂载到 API 前缀；树的增删需要 x-admin-token。
// 约束：坐标一律为数组，长度须与树维度一致；查询参数 center/half 为逗号分隔的数值。
func BuildRoutes(reg *index.Registry, opt Options) *http.ServeMux {
	s := &server{reg: reg, opt: opt}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /trees", s.count("list", s.listTrees))
	mux.HandleFunc("GET /trees/{name}", s.count("get", s.getTree))
	mux.HandleFunc("PUT /trees/{name}", s.count("create", s.admin(s.createTree)))
	mux.HandleFunc("DELETE /trees/{name}", s.count("drop", s.admin(s.dropTree)))
	mux.HandleFunc("POST /trees/{name}/points", s.count("insert", s.insertPoints))
	mux.HandleFunc("DELETE /trees/{name}/points", s.count("remove", s.removePoints))
	mux.HandleFunc("POST /trees/{name}/points/ip", s.count("insert_ip", s.insertByIP))
	mux.HandleFunc("GET /trees/{name}/query", s.count("query", s.query))
	return mux
}

func (s *server) count(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		h(w, r)
	}
}

func (s *server) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := r.Header.Get("x-admin-token")
		if t == "" || t != s.opt.AdminToken {
			writeError(w, r, http.StatusForbidden, errors.New("admin token required"))
			return
		}
		h(w, r)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, index.ErrTreeNotFound), errors.Is(err, ipgeo.ErrNoLocation):
		return http.StatusNotFound
	case errors.Is(err, index.ErrTreeExists):
		return http.StatusConflict
	case errors.Is(err, index.ErrBadDefinition), errors.Is(err, index.ErrDimension),
		errors.Is(err, ipgeo.ErrBadIP), errors.Is(err, errEmptyBody), errors.Is(err, errBadCoords):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func info(x index.Index) treeInfo {
	return treeInfo{Definition: x.Definition(), Stats: x.Stats(), Version: x.Version()}
}

func (s *server) listTrees(w http.ResponseWriter, r *http.Request) {
	list := s.reg.List()
	out := make([]treeInfo, 0, len(list))
	for _, x := range list {
		out = append(out, info(x))
	}
	writeResult(w, r, http.StatusOK, out)
}

func (s *server) getTree(w http.ResponseWriter, r *http.Request) {
	x, err := s.reg.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	writeResult(w, r, http.StatusOK, info(x))
}

func (s *server) createTree(w http.ResponseWriter, r *http.Request) {
	var def index.Definition
	if err := readBody(r, &def); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	def.Name = r.PathValue("name")
	def = def.WithDefaults(s.opt.DefaultCapacity, s.opt.MaxDepth)
	x, err := s.reg.Create(def)
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	writeResult(w, r, http.StatusCreated, info(x))
}

func (s *server) dropTree(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.Drop(r.PathValue("name")); err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// 读取请求体中的点并按树维度整体校验，任何一个维度不符则整批拒绝
func (s *server) points(w http.ResponseWriter, r *http.Request) (index.Index, [][]float64, bool) {
	x, err := s.reg.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return nil, nil, false
	}
	var body pointsBody
	if err := readBody(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return nil, nil, false
	}
	for i, p := range body.Points {
		if len(p) != x.Dims() {
			err := fmt.Errorf("%w: point %d has %d coordinates, tree %s has %d dims", index.ErrDimension, i, len(p), x.Name(), x.Dims())
			writeError(w, r, http.StatusBadRequest, err)
			return nil, nil, false
		}
	}
	return x, body.Points, true
}

func (s *server) insertPoints(w http.ResponseWriter, r *http.Request) {
	x, pts, ok := s.points(w, r)
	if !ok {
		return
	}
	res := insertResult{Accepted: make([]bool, len(pts))}
	for i, p := range pts {
		accepted, err := x.Insert(p)
		if err != nil {
			writeError(w, r, statusOf(err), err)
			return
		}
		res.Accepted[i] = accepted
		if accepted {
			res.Inserted++
		}
	}
	logger.L().Debug("points_insert", "rid", logger.RequestID(r.Context()), "tree", x.Name(), "n", len(pts), "inserted", res.Inserted)
	writeResult(w, r, http.StatusOK, res)
}

func (s *server) removePoints(w http.ResponseWriter, r *http.Request) {
	x, pts, ok := s.points(w, r)
	if !ok {
		return
	}
	res := removeResult{Removed: make([]bool, len(pts))}
	for i, p := range pts {
		removed, err := x.Remove(p)
		if err != nil {
			writeError(w, r, statusOf(err), err)
			return
		}
		res.Removed[i] = removed
		if removed {
			res.Count++
		}
	}
	logger.L().Debug("points_remove", "rid", logger.RequestID(r.Context()), "tree", x.Name(), "n", len(pts), "removed", res.Count)
	writeResult(w, r, http.StatusOK, res)
}

// 文档注释：按 IP 入点
// 背景：GeoIP 解析出 (经度, 纬度) 后写入二维树，便于按访问来源做区域统计。
// 约束：仅二维树可用；未配置 GeoIP 库时返回 501。
func (s *server) insertByIP(w http.ResponseWriter, r *http.Request) {
	if s.opt.Geo == nil {
		writeError(w, r, http.StatusNotImplemented, errors.New("geoip disabled"))
		return
	}
	x, err := s.reg.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	if x.Dims() != 2 {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: ip insert needs a 2D tree", index.ErrDimension))
		return
	}
	ip := r.URL.Query().Get("ip")
	lon, lat, err := s.opt.Geo.Locate(ip)
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	p := []float64{lon, lat}
	accepted, err := x.Insert(p)
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	logger.L().Debug("points_insert_ip", "tree", x.Name(), "ip", ip, "lon", lon, "lat", lat, "accepted", accepted)
	writeResult(w, r, http.StatusOK, ipInsertResult{IP: ip, Point: p, Accepted: accepted})
}

var errBadCoords = errors.New("bad coordinate list")

// 解析 "x,y[,z]" 形式的坐标参数
func parseCoords(s string) ([]float64, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", errBadCoords)
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadCoords, s)
		}
		out[i] = v
	}
	return out, nil
}

func (s *server) query(w http.ResponseWriter, r *http.Request) {
	x, err := s.reg.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	q := r.URL.Query()
	center, err := parseCoords(q.Get("center"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	half, err := parseCoords(q.Get("half"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	ctx := r.Context()
	if ver := x.Version(); len(center) == x.Dims() && len(half) == x.Dims() {
		if pts, ok := s.opt.Cache.Get(ctx, queryKey(x.Name(), x.Instance(), ver, center, half)); ok {
			writeResult(w, r, http.StatusOK, queryResult{Tree: x.Name(), Version: ver, Count: len(pts), Points: pts, Cached: true})
			return
		}
	}
	pts, ver, err := x.Query(center, half)
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	s.opt.Cache.Set(ctx, queryKey(x.Name(), x.Instance(), ver, center, half), pts)
	writeResult(w, r, http.StatusOK, queryResult{Tree: x.Name(), Version: ver, Count: len(pts), Points: pts})
}
