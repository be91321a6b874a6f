package monitor

type HttpRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

type QCDecisionLabels struct {
	Status string
	Path   string
}

func (l QCDecisionLabels) ToMap() map[string]string {
	return map[string]string{
		"status": l.Status,
		"path":   l.Path,
	}
}

var QCDecisionLabelNames = []string{"status", "path"}
