package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cajasAbiertas = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zerostress_cajas_abiertas_total",
		Help: "Cashboxes opened",
	})

	cajasCerradas = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zerostress_cajas_cerradas_total",
		Help: "Cashboxes closed",
	})

	movimientosManuales = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerostress_movimientos_manuales_total",
		Help: "Manual cash moves added, by type",
	}, []string{"tipo"})

	pagosFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zerostress_pagos_fetch_errors_total",
		Help: "Payment fetches that failed and degraded to an empty list",
	})

	llavesTransiciones = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerostress_llaves_transiciones_total",
		Help: "Locker assignments and releases",
	}, []string{"accion"})
)
