package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var statementsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookclose_statements_generated_total",
	Help: "Statements generated, by type",
}, []string{"type"})
