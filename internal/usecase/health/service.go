package health

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers but is not fully warmed up.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot serve its main list.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckPending indicates a check whose outcome is not known yet.
	CheckPending CheckResult = "pending"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkPopulationList = "population_list"

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	list ListStatusReader
}

// New creates a Service.
func New(list ListStatusReader) *Service {
	return &Service{list: list}
}

// Check reports the state of the cached population list. It never touches
// the backend: a failed list fetch is cached, so the report stays in error
// until the process restarts.
func (s *Service) Check() Report {
	checks := make(map[string]CheckResult)

	ready, err := s.list.ListStatus()
	switch {
	case err != nil:
		checks[checkPopulationList] = CheckError
	case ready:
		checks[checkPopulationList] = CheckOK
	default:
		checks[checkPopulationList] = CheckPending
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Unhealthy
			break
		}
		if v == CheckPending {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
