// internal/workflow/status.go
package workflow

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a trademark application.
type Status string

const (
	StatusSubmitted                Status = "submitted"
	StatusAwaitingPayment          Status = "awaiting_payment"
	StatusPaymentReceived          Status = "payment_received"
	StatusAwaitingApplicantInfo    Status = "awaiting_applicant_info"
	StatusAwaitingDocuments        Status = "awaiting_documents"
	StatusPreparingFiling          Status = "preparing_filing"
	StatusAwaitingClientSignature  Status = "awaiting_client_signature"
	StatusFiled                    Status = "filed"
	StatusAwaitingAcceleration     Status = "awaiting_acceleration"
	StatusPreparingAcceleration    Status = "preparing_acceleration"
	StatusUnderExamination         Status = "under_examination"
	StatusAwaitingOfficeAction     Status = "awaiting_office_action"
	StatusRespondingToOfficeAction Status = "responding_to_office_action"
	StatusPublicationAnnounced     Status = "publication_announced"
	StatusRegistrationDecided      Status = "registration_decided"
	StatusAwaitingRegistrationFee  Status = "awaiting_registration_fee"
	StatusRegistrationFeePaid      Status = "registration_fee_paid"
	StatusRegistered               Status = "registered"
	StatusRejected                 Status = "rejected"
	StatusCancelled                Status = "cancelled"
	StatusWithdrawn                Status = "withdrawn"
)

// AllStatuses lists every declared status in display order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusAwaitingPayment,
	StatusPaymentReceived,
	StatusAwaitingApplicantInfo,
	StatusAwaitingDocuments,
	StatusPreparingFiling,
	StatusAwaitingClientSignature,
	StatusFiled,
	StatusAwaitingAcceleration,
	StatusPreparingAcceleration,
	StatusUnderExamination,
	StatusAwaitingOfficeAction,
	StatusRespondingToOfficeAction,
	StatusPublicationAnnounced,
	StatusRegistrationDecided,
	StatusAwaitingRegistrationFee,
	StatusRegistrationFeePaid,
	StatusRegistered,
	StatusRejected,
	StatusCancelled,
	StatusWithdrawn,
}

var validStatuses = func() map[Status]struct{} {
	m := make(map[Status]struct{}, len(AllStatuses))
	for _, s := range AllStatuses {
		m[s] = struct{}{}
	}
	return m
}()

// ParseStatus normalises and validates an incoming status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

func (s Status) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRegistered, StatusRejected, StatusCancelled, StatusWithdrawn:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
