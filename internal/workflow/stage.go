// internal/workflow/stage.go
package workflow

import (
	"fmt"
	"strings"
)

// PaymentStage is one of the three fee checkpoints in an application's life.
type PaymentStage string

const (
	StageFiling       PaymentStage = "filing"
	StageOfficeAction PaymentStage = "office_action"
	StageRegistration PaymentStage = "registration"
)

var AllStages = []PaymentStage{StageFiling, StageOfficeAction, StageRegistration}

func ParseStage(raw string) (PaymentStage, error) {
	stage := PaymentStage(strings.ToLower(strings.TrimSpace(raw)))
	switch stage {
	case StageFiling, StageOfficeAction, StageRegistration:
		return stage, nil
	}
	return "", fmt.Errorf("unknown payment stage %q", raw)
}

func (p PaymentStage) String() string {
	return string(p)
}

// Status entered automatically once a stage's payment is confirmed.
var paymentCompletionTransitions = map[PaymentStage]Status{
	StageFiling:       StatusPaymentReceived,
	StageOfficeAction: StatusRespondingToOfficeAction,
	StageRegistration: StatusRegistrationFeePaid,
}

var paymentCompletionDetails = map[PaymentStage]string{
	StageFiling:       "Filing fee payment confirmed. We are now collecting applicant information.",
	StageOfficeAction: "Office action response fee confirmed. We are preparing the response.",
	StageRegistration: "Registration fee confirmed. We will remit it to the trademark office.",
}

// CompletionTarget returns the status an application moves to when the
// given stage is paid. ok is false for stages without a configured target.
func CompletionTarget(stage PaymentStage) (Status, bool) {
	status, ok := paymentCompletionTransitions[stage]
	return status, ok
}

// CompletionDetail is the status_detail text recorded by a payment-triggered transition.
func CompletionDetail(stage PaymentStage) string {
	return paymentCompletionDetails[stage]
}
