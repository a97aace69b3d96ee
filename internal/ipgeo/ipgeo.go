// 包 ipgeo：基于 GeoIP2 City 库把 IP 解析为经纬度，供二维树按 IP 入点
package ipgeo

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

var (
	ErrBadIP      = errors.New("ipgeo: invalid ip")
	ErrNoLocation = errors.New("ipgeo: no location for ip")
)

// 文档注释：GeoIP2 坐标解析器
// 背景：返回 (经度, 纬度) 顺序，与二维树的 (x, y) 约定一致。
// 约束：库中未收录坐标（经纬度均为 0 且无城市信息）视为无结果；Reader 并发安全。
type Resolver struct {
	db *geoip2.Reader
}

func Open(path string) (*Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db %s: %w", path, err)
	}
	return &Resolver{db: db}, nil
}

func (r *Resolver) Locate(ip string) (float64, float64, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadIP, ip)
	}
	rec, err := r.db.City(addr)
	if err != nil {
		return 0, 0, err
	}
	loc := rec.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && rec.City.GeoNameID == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}
	return loc.Longitude, loc.Latitude, nil
}

func (r *Resolver) Close() error { return r.db.Close() }
