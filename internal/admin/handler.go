// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/usergate/internal/core"
)

const pingTimeout = 3 * time.Second

// Handler serves operator stats for whichever binary mounts it. Sections
// whose source is not configured are left out of the response and their
// routes are not registered.
type Handler struct {
	service    string
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	countUsers func(ctx context.Context) (int64, error)
	upstream   func() UpstreamStats
	pings      map[string]func(ctx context.Context) error
	startedAt  time.Time
}

type HandlerConfig struct {
	Service    string
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	CountUsers func(ctx context.Context) (int64, error)
	Upstream   func() UpstreamStats
	// Pings names each dependency reported under "dependencies".
	Pings map[string]func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		service:    cfg.Service,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		countUsers: cfg.CountUsers,
		upstream:   cfg.Upstream,
		pings:      cfg.Pings,
		startedAt:  time.Now(),
	}
}

// RegisterRoutes mounts the stats endpoints. There is no authentication in
// front of them, so callers only mount them outside production.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		if h.dbStats != nil {
			r.Get("/stats/db", h.GetDatabaseStats)
		}
		if h.redisStats != nil {
			r.Get("/stats/redis", h.GetRedisStats)
		}
		if h.countUsers != nil {
			r.Get("/stats/users", h.GetUserStats)
		}
		if h.upstream != nil {
			r.Get("/stats/upstream", h.GetUpstreamStats)
		}
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := SystemStatsResponse{
		Service:      h.service,
		Dependencies: h.pingAll(ctx),
		Database:     h.getDBStats(),
		Redis:        h.getRedisStats(),
		Runtime:      h.getRuntimeStats(),
	}
	if h.countUsers != nil {
		users := h.getUserStats(ctx)
		resp.Users = &users
	}
	if h.upstream != nil {
		up := h.upstream()
		resp.Upstream = &up
	}

	core.OK(w, resp)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRuntimeStats())
}

func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getUserStats(r.Context()))
}

func (h *Handler) GetUpstreamStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.upstream())
}

func (h *Handler) pingAll(ctx context.Context) []DependencyStatus {
	if len(h.pings) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make([]DependencyStatus, 0, len(h.pings))
	)
	for name, ping := range h.pings {
		wg.Add(1)
		go func() {
			defer wg.Done()

			status := DependencyStatus{Name: name, Healthy: true}
			if err := ping(ctx); err != nil {
				status.Healthy = false
			}

			mu.Lock()
			out = append(out, status)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *Handler) getUserStats(ctx context.Context) UserStats {
	total, err := h.countUsers(ctx)
	if err != nil {
		return UserStats{Error: "count failed"}
	}
	return UserStats{Total: total}
}

func (h *Handler) getRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Service      string             `json:"service,omitempty"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	Database     *DBPoolStats       `json:"database,omitempty"`
	Redis        *RedisPoolStats    `json:"redis,omitempty"`
	Users        *UserStats         `json:"users,omitempty"`
	Upstream     *UpstreamStats     `json:"upstream,omitempty"`
	Runtime      RuntimeStats       `json:"runtime"`
}

type DependencyStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
}

type UserStats struct {
	Total int64  `json:"total"`
	Error string `json:"error,omitempty"`
}

// UpstreamStats describes how the gateway reaches the user service.
type UpstreamStats struct {
	Transport string `json:"transport"`
	Target    string `json:"target"`
	Breaker   string `json:"breaker"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
	Uptime       string `json:"uptime"`
}
