package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HttpRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "ctp", Subsystem: "http", Name: string(HttpRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "ctp", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "ctp", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	AssignmentsExpiredCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ctp", Subsystem: "scheduler", Name: string(AssignmentsExpiredCounterTag),
		Help: "A counter of assignments released back to the pool after their TTL elapsed",
	}),
	DisputesAutoResolvedCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ctp", Subsystem: "scheduler", Name: string(DisputesAutoResolvedCounterTag),
		Help: "A counter of disputes auto-approved after the resolution deadline",
	}),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	QCDecisionsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctp", Subsystem: "qc", Name: string(QCDecisionsCounterTag),
		Help: "QC decisions by terminal status and adjudication path",
	},
		QCDecisionLabelNames,
	),
	PaymentsSettledCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctp", Subsystem: "payments", Name: string(PaymentsSettledCounterTag),
		Help: "Settled payments by outcome",
	},
		[]string{"outcome"},
	),
}
