package sending

import "github.com/ignite/blast-sender/internal/domain"

// Aggregate builds the report for a dispatched batch from its outcomes.
func Aggregate(req *domain.SendRequest, outcomes []domain.DeliveryOutcome) *domain.SendReport {
	report := &domain.SendReport{
		TotalRequested: len(req.Recipients),
		TotalAttempted: len(outcomes),
		Results:        outcomes,
	}
	if report.Results == nil {
		report.Results = []domain.DeliveryOutcome{}
	}
	for _, o := range outcomes {
		switch o.Status {
		case domain.StatusSent:
			report.Sent++
		case domain.StatusFailed:
			report.Failed++
		}
	}
	return report
}
