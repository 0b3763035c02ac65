package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/webcrawler/backend/pkg/logger"
	"gorm.io/gorm"
)

var authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "webcrawler",
	Subsystem: "auth",
	Name:      "events_total",
	Help:      "Session operations by outcome.",
}, []string{"operation", "outcome"})

var sweptTokens = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "webcrawler",
	Subsystem: "auth",
	Name:      "swept_tokens_total",
	Help:      "Token records expired by the background sweep.",
})

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

func observe(op, outcome string) {
	authEvents.WithLabelValues(op, outcome).Inc()
}

// RegisterDBMetrics exposes connection pool statistics and the live session
// count on reg.
func RegisterDBMetrics(reg prometheus.Registerer, db *gorm.DB, store *GormTokenStore) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := reg.Register(collectors.NewDBStatsCollector(sqlDB, "webcrawler")); err != nil {
		return err
	}

	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "webcrawler",
		Subsystem: "auth",
		Name:      "live_sessions",
		Help:      "Token records that are not expired.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := store.CountLive(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("count live sessions")
			return 0
		}
		return float64(n)
	}))
}
