package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HttpRequestDurationTag     MetricTag = "requests_duration_seconds"
	// QC:
	QCDecisionsCounterTag MetricTag = "qc_decisions_counter"
	// Payments:
	PaymentsSettledCounterTag MetricTag = "payments_settled_counter"
	// Scheduler:
	AssignmentsExpiredCounterTag   MetricTag = "assignments_expired_counter"
	DisputesAutoResolvedCounterTag MetricTag = "disputes_auto_resolved_counter"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		QCDecisionsCounterTag,
		PaymentsSettledCounterTag,
		AssignmentsExpiredCounterTag,
		DisputesAutoResolvedCounterTag,
	}
}
