package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_Reflexive(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, CanTransition(s, s), "status %s must be able to re-apply itself", s)
	}
}

func TestCanTransition_TerminalStatusesHaveNoExits(t *testing.T) {
	for _, from := range AllStatuses {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range AllStatuses {
			if to == from {
				continue
			}
			assert.False(t, CanTransition(from, to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestCanTransition_Deterministic(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			first := CanTransition(from, to)
			for i := 0; i < 3; i++ {
				require.Equal(t, first, CanTransition(from, to))
			}
		}
	}
}

func TestCanTransition_GraphOnlyReferencesKnownStatuses(t *testing.T) {
	for from, targets := range allowedTransitions {
		assert.True(t, from.Valid(), "unknown source %s", from)
		assert.False(t, from.IsTerminal(), "terminal %s must not have edges", from)
		for _, to := range targets {
			assert.True(t, to.Valid(), "unknown target %s from %s", to, from)
			assert.NotEqual(t, from, to, "self edges are implicit")
		}
	}
}

func TestCanTransition_Edges(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusAwaitingPayment, StatusPaymentReceived, true},
		{StatusPaymentReceived, StatusAwaitingApplicantInfo, true},
		{StatusAwaitingOfficeAction, StatusRespondingToOfficeAction, true},
		{StatusAwaitingRegistrationFee, StatusRegistrationFeePaid, true},
		{StatusRegistrationFeePaid, StatusRegistered, true},
		{StatusSubmitted, StatusRegistered, false},
		{StatusFiled, StatusCancelled, false},
		{StatusUnderExamination, StatusAwaitingAcceleration, false},
		{StatusAwaitingAcceleration, StatusPreparingAcceleration, false},
		{Status("bogus"), StatusFiled, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsRollback(t *testing.T) {
	assert.True(t, IsRollback(StatusPreparingFiling, StatusAwaitingDocuments))
	assert.True(t, IsRollback(StatusFiled, StatusPreparingFiling))
	assert.False(t, IsRollback(StatusAwaitingDocuments, StatusPreparingFiling))
	assert.False(t, IsRollback(StatusFiled, StatusFiled))
	assert.False(t, IsRollback(StatusFiled, StatusWithdrawn))
	assert.False(t, IsRollback(StatusUnderExamination, StatusRejected))
	assert.False(t, IsRollback(StatusAwaitingAcceleration, StatusSubmitted))
}

func TestRequiredPaymentStages(t *testing.T) {
	assert.Equal(t, []PaymentStage{StageFiling}, RequiredPaymentStages(StatusPaymentReceived))
	assert.Equal(t, []PaymentStage{StageOfficeAction}, RequiredPaymentStages(StatusRespondingToOfficeAction))
	assert.Equal(t, []PaymentStage{StageRegistration}, RequiredPaymentStages(StatusRegistrationFeePaid))
	assert.Empty(t, RequiredPaymentStages(StatusFiled))
	assert.Empty(t, RequiredPaymentStages(StatusAwaitingAcceleration))

	// callers must not be able to mutate the table
	stages := RequiredPaymentStages(StatusPaymentReceived)
	stages[0] = StageRegistration
	assert.Equal(t, []PaymentStage{StageFiling}, RequiredPaymentStages(StatusPaymentReceived))
}

func TestCompletionTargetsAreGated(t *testing.T) {
	for _, stage := range AllStages {
		target, ok := CompletionTarget(stage)
		require.True(t, ok, "stage %s has no completion target", stage)
		assert.Contains(t, RequiredPaymentStages(target), stage)
		assert.NotEmpty(t, CompletionDetail(stage))
	}

	_, ok := CompletionTarget(PaymentStage("consulting"))
	assert.False(t, ok)
}

func TestResolveInitialStatus(t *testing.T) {
	fee := decimal.NewFromInt(50000)
	zero := decimal.Zero
	negative := decimal.NewFromInt(-1)

	assert.Equal(t, StatusAwaitingPayment, ResolveInitialStatus(InitialStatusInput{PaymentAmount: &fee}))
	assert.Equal(t, StatusAwaitingDocuments, ResolveInitialStatus(InitialStatusInput{PaymentAmount: &fee, SkipPaymentGate: true}))
	assert.Equal(t, StatusAwaitingDocuments, ResolveInitialStatus(InitialStatusInput{PaymentAmount: &zero}))
	assert.Equal(t, StatusAwaitingDocuments, ResolveInitialStatus(InitialStatusInput{PaymentAmount: &negative}))
	assert.Equal(t, StatusAwaitingDocuments, ResolveInitialStatus(InitialStatusInput{}))
	assert.Equal(t, StatusAwaitingDocuments, ResolveInitialStatus(InitialStatusInput{SkipPaymentGate: true}))
}

func TestRegistryCoversEveryStatus(t *testing.T) {
	for _, s := range AllStatuses {
		_, hasMeta := statusMetadata[s]
		assert.True(t, hasMeta, "missing metadata for %s", s)

		_, hasTemplate := notificationTemplates[s]
		assert.True(t, hasTemplate, "missing notification template for %s", s)
	}
	assert.Len(t, statusMetadata, len(AllStatuses))
	assert.Len(t, notificationTemplates, len(AllStatuses))
}

func TestMetadata_Fallback(t *testing.T) {
	m := Metadata(Status(""))
	assert.Equal(t, "In progress", m.Label)
	assert.Equal(t, ToneNeutral, m.Tone)

	m = Metadata(Status("not_a_status"))
	assert.Equal(t, "In progress", m.Label)

	m = Metadata(StatusRegistered)
	assert.Equal(t, "Registered", m.Label)
	assert.Equal(t, StatusRegistered, m.Status)
	assert.NotEmpty(t, m.BadgeClass)
}

func TestTemplate_UnknownHasNoChannels(t *testing.T) {
	assert.Empty(t, Template(Status("nope")).Channels)
	assert.Contains(t, Template(StatusPaymentReceived).Channels, ChannelEmail)
	assert.True(t, Template(StatusAwaitingOfficeAction).EscalateToOps)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("  Filed ")
	require.NoError(t, err)
	assert.Equal(t, StatusFiled, s)

	_, err = ParseStatus("archived")
	assert.Error(t, err)

	stage, err := ParseStage("OFFICE_ACTION")
	require.NoError(t, err)
	assert.Equal(t, StageOfficeAction, stage)

	_, err = ParseStage("")
	assert.Error(t, err)
}
