package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatTurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teachmate_chat_turns_total",
		Help: "Completed chat turns.",
	})
	documentsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teachmate_documents_ingested_total",
		Help: "Successfully ingested documents by kind.",
	}, []string{"kind"})
	curriculaGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teachmate_curricula_generated_total",
		Help: "Generated curricula.",
	})
)
