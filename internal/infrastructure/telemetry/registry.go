package telemetry

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry returns a registry preloaded with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RegisterDBStats exposes connection pool statistics of sqlDB under dbName
func RegisterDBStats(reg prometheus.Registerer, sqlDB *sql.DB, dbName string) error {
	if reg == nil {
		return ErrRegistererNil
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, dbName))
}
