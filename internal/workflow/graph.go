// internal/workflow/graph.go
package workflow

import "github.com/shopspring/decimal"

// allowedTransitions is the complete adjacency list of the workflow.
// A status missing from the map (terminal or not yet wired) has no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusSubmitted: {
		StatusAwaitingPayment,
		StatusPaymentReceived,
		StatusAwaitingApplicantInfo,
		StatusAwaitingDocuments,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusAwaitingPayment: {
		StatusPaymentReceived,
		StatusSubmitted,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusPaymentReceived: {
		StatusAwaitingApplicantInfo,
		StatusAwaitingDocuments,
		StatusPreparingFiling,
		StatusAwaitingPayment,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusAwaitingApplicantInfo: {
		StatusAwaitingDocuments,
		StatusPreparingFiling,
		StatusPaymentReceived,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusAwaitingDocuments: {
		StatusPreparingFiling,
		StatusAwaitingApplicantInfo,
		StatusAwaitingPayment,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusPreparingFiling: {
		StatusAwaitingClientSignature,
		StatusFiled,
		StatusAwaitingDocuments,
		StatusAwaitingApplicantInfo,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusAwaitingClientSignature: {
		StatusFiled,
		StatusPreparingFiling,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusFiled: {
		StatusUnderExamination,
		StatusAwaitingClientSignature,
		StatusPreparingFiling,
		StatusWithdrawn,
	},
	StatusUnderExamination: {
		StatusAwaitingOfficeAction,
		StatusPublicationAnnounced,
		StatusRegistrationDecided,
		StatusRejected,
		StatusWithdrawn,
	},
	StatusAwaitingOfficeAction: {
		StatusRespondingToOfficeAction,
		StatusUnderExamination,
		StatusRejected,
		StatusWithdrawn,
	},
	StatusRespondingToOfficeAction: {
		StatusUnderExamination,
		StatusAwaitingOfficeAction,
		StatusPublicationAnnounced,
		StatusRejected,
		StatusWithdrawn,
	},
	StatusPublicationAnnounced: {
		StatusRegistrationDecided,
		StatusUnderExamination,
		StatusRejected,
		StatusWithdrawn,
	},
	StatusRegistrationDecided: {
		StatusAwaitingRegistrationFee,
		StatusRegistrationFeePaid,
		StatusPublicationAnnounced,
		StatusWithdrawn,
	},
	StatusAwaitingRegistrationFee: {
		StatusRegistrationFeePaid,
		StatusRegistrationDecided,
		StatusCancelled,
		StatusWithdrawn,
	},
	StatusRegistrationFeePaid: {
		StatusRegistered,
		StatusAwaitingRegistrationFee,
		StatusWithdrawn,
	},
}

// Nominal forward order used to detect rollbacks. Lateral exits and the
// acceleration statuses are not part of it.
var forwardSequence = []Status{
	StatusSubmitted,
	StatusAwaitingPayment,
	StatusPaymentReceived,
	StatusAwaitingApplicantInfo,
	StatusAwaitingDocuments,
	StatusPreparingFiling,
	StatusAwaitingClientSignature,
	StatusFiled,
	StatusUnderExamination,
	StatusAwaitingOfficeAction,
	StatusRespondingToOfficeAction,
	StatusPublicationAnnounced,
	StatusRegistrationDecided,
	StatusAwaitingRegistrationFee,
	StatusRegistrationFeePaid,
	StatusRegistered,
}

var sequenceIndex = func() map[Status]int {
	m := make(map[Status]int, len(forwardSequence))
	for i, s := range forwardSequence {
		m[s] = i
	}
	return m
}()

var requiredPaymentStages = map[Status][]PaymentStage{
	StatusPaymentReceived:          {StageFiling},
	StatusRespondingToOfficeAction: {StageOfficeAction},
	StatusRegistrationFeePaid:      {StageRegistration},
	StatusRegistered:               {StageRegistration},
}

// CanTransition reports whether moving from current to next is a legal step.
// Re-applying the current status is always legal.
func CanTransition(current, next Status) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal targets from current, excluding current itself.
func NextStatuses(current Status) []Status {
	next := allowedTransitions[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// RequiredPaymentStages lists the stages that must be paid before entering status.
func RequiredPaymentStages(status Status) []PaymentStage {
	stages := requiredPaymentStages[status]
	out := make([]PaymentStage, len(stages))
	copy(out, stages)
	return out
}

// IsRollback reports whether next sits earlier than current in the forward sequence.
func IsRollback(current, next Status) bool {
	from, ok := sequenceIndex[current]
	if !ok {
		return false
	}
	to, ok := sequenceIndex[next]
	if !ok {
		return false
	}
	return to < from
}

// InitialStatusInput is the submission context used to pick the first status.
type InitialStatusInput struct {
	PaymentAmount   *decimal.Decimal
	SkipPaymentGate bool
}

// ResolveInitialStatus picks the status a new application starts in.
func ResolveInitialStatus(in InitialStatusInput) Status {
	if in.SkipPaymentGate {
		return StatusAwaitingDocuments
	}
	if in.PaymentAmount != nil && in.PaymentAmount.IsPositive() {
		return StatusAwaitingPayment
	}
	return StatusAwaitingDocuments
}
