package email

const (
	subjectComplaintFmt       = "Formal complaint filed on behalf of %s"
	subjectResolvedFmt        = "Your complaint with %s has been resolved"
	subjectCallFailedFmt      = "We could not reach %s about your complaint"
	subjectEscalatedFmt       = "Your complaint with %s has been escalated"
	subjectFallbackSummaryFmt = "Details added to your complaint with %s"
	subjectEscalationAlertFmt = "Escalation: complaint against %s needs an agent"
)
