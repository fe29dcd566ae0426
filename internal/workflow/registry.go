// internal/workflow/registry.go
package workflow

type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

// StatusMetadata is the display information shown for a status.
type StatusMetadata struct {
	Status      Status `json:"status"`
	Label       string `json:"label"`
	Tone        Tone   `json:"tone"`
	BadgeClass  string `json:"badge_class"`
	Description string `json:"description"`
}

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelOpsEmail Channel = "ops-email"
)

// NotificationTemplate describes what is sent to the applicant when an
// application enters a status. Bodies are Go templates.
type NotificationTemplate struct {
	Channels      []Channel
	EmailSubject  string
	EmailBody     string
	SMSBody       string
	EscalateToOps bool
}

var badgeClasses = map[Tone]string{
	ToneNeutral: "bg-gray-100 text-gray-700",
	ToneInfo:    "bg-blue-100 text-blue-700",
	ToneWarning: "bg-amber-100 text-amber-800",
	ToneSuccess: "bg-emerald-100 text-emerald-700",
	ToneDanger:  "bg-red-100 text-red-700",
}

var fallbackMetadata = StatusMetadata{
	Label:       "In progress",
	Tone:        ToneNeutral,
	BadgeClass:  badgeClasses[ToneNeutral],
	Description: "Your application is being processed.",
}

func meta(label string, tone Tone, description string) StatusMetadata {
	return StatusMetadata{
		Label:       label,
		Tone:        tone,
		BadgeClass:  badgeClasses[tone],
		Description: description,
	}
}

var statusMetadata = map[Status]StatusMetadata{
	StatusSubmitted:                meta("Submitted", ToneInfo, "We received your application and will review it shortly."),
	StatusAwaitingPayment:          meta("Awaiting payment", ToneWarning, "Please pay the filing fee so we can start working on your application."),
	StatusPaymentReceived:          meta("Payment received", ToneSuccess, "Your filing fee has been confirmed."),
	StatusAwaitingApplicantInfo:    meta("Awaiting applicant info", ToneWarning, "Please complete the applicant profile in the portal."),
	StatusAwaitingDocuments:        meta("Awaiting documents", ToneWarning, "Please upload the documents requested in the portal."),
	StatusPreparingFiling:          meta("Preparing filing", ToneInfo, "Our attorneys are preparing your filing."),
	StatusAwaitingClientSignature:  meta("Awaiting signature", ToneWarning, "Please review and sign the filing documents."),
	StatusFiled:                    meta("Filed", ToneInfo, "Your application has been filed with the trademark office."),
	StatusAwaitingAcceleration:     meta("Awaiting acceleration", ToneWarning, "We are waiting to request accelerated examination."),
	StatusPreparingAcceleration:    meta("Preparing acceleration", ToneInfo, "We are preparing the accelerated examination request."),
	StatusUnderExamination:         meta("Under examination", ToneInfo, "The trademark office is examining your application."),
	StatusAwaitingOfficeAction:     meta("Office action issued", ToneWarning, "The examiner raised objections. A response fee is required to proceed."),
	StatusRespondingToOfficeAction: meta("Responding to office action", ToneInfo, "We are preparing the response to the office action."),
	StatusPublicationAnnounced:     meta("Publication announced", ToneInfo, "Your mark has been published for opposition."),
	StatusRegistrationDecided:      meta("Registration decided", ToneSuccess, "The office decided to register your mark."),
	StatusAwaitingRegistrationFee:  meta("Awaiting registration fee", ToneWarning, "Please pay the registration fee to complete registration."),
	StatusRegistrationFeePaid:      meta("Registration fee paid", ToneSuccess, "Your registration fee has been confirmed."),
	StatusRegistered:               meta("Registered", ToneSuccess, "Congratulations, your trademark is registered."),
	StatusRejected:                 meta("Rejected", ToneDanger, "The trademark office rejected the application."),
	StatusCancelled:                meta("Cancelled", ToneNeutral, "This application has been cancelled."),
	StatusWithdrawn:                meta("Withdrawn", ToneNeutral, "This application has been withdrawn."),
}

// Metadata returns display metadata for status. Unknown or empty input
// yields a neutral "in progress" entry.
func Metadata(status Status) StatusMetadata {
	m, ok := statusMetadata[status]
	if !ok {
		m = fallbackMetadata
	}
	m.Status = status
	return m
}

// AllMetadata returns metadata for every declared status in display order.
func AllMetadata() []StatusMetadata {
	out := make([]StatusMetadata, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		out = append(out, Metadata(s))
	}
	return out
}

const defaultEmailBody = `<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.DisplayName}},</p>
	<p>The status of your trademark application <strong>{{.BrandName}}</strong> ({{.ManagementNumber}}) changed to <strong>{{.StatusLabel}}</strong>.</p>
	<p>{{.StatusHelp}}</p>
	<p>{{.StatusDetail}}</p>
	<p><a href="{{.PortalURL}}">Open the portal</a></p>
	<p>Updated at {{.ChangedAt}}</p>
</body>
</html>`

const defaultSMSBody = `[{{.BrandName}}] {{.StatusLabel}}: {{.StatusHelp}} {{.PortalURL}}`

func emailOnly(subject string) NotificationTemplate {
	return NotificationTemplate{
		Channels:     []Channel{ChannelEmail},
		EmailSubject: subject,
		EmailBody:    defaultEmailBody,
	}
}

func emailAndSMS(subject string, escalate bool) NotificationTemplate {
	return NotificationTemplate{
		Channels:      []Channel{ChannelEmail, ChannelSMS},
		EmailSubject:  subject,
		EmailBody:     defaultEmailBody,
		SMSBody:       defaultSMSBody,
		EscalateToOps: escalate,
	}
}

var notificationTemplates = map[Status]NotificationTemplate{
	StatusSubmitted:                emailOnly("[{{.BrandName}}] Application received"),
	StatusAwaitingPayment:          emailAndSMS("[{{.BrandName}}] Filing fee payment required", false),
	StatusPaymentReceived:          emailOnly("[{{.BrandName}}] Filing fee payment confirmed"),
	StatusAwaitingApplicantInfo:    emailAndSMS("[{{.BrandName}}] Applicant information needed", false),
	StatusAwaitingDocuments:        emailAndSMS("[{{.BrandName}}] Documents needed", false),
	StatusPreparingFiling:          emailOnly("[{{.BrandName}}] Preparing your filing"),
	StatusAwaitingClientSignature:  emailAndSMS("[{{.BrandName}}] Signature required", false),
	StatusFiled:                    emailAndSMS("[{{.BrandName}}] Application filed", false),
	StatusAwaitingAcceleration:     emailOnly("[{{.BrandName}}] Accelerated examination pending"),
	StatusPreparingAcceleration:    emailOnly("[{{.BrandName}}] Preparing accelerated examination"),
	StatusUnderExamination:         emailOnly("[{{.BrandName}}] Examination started"),
	StatusAwaitingOfficeAction:     emailAndSMS("[{{.BrandName}}] Office action issued", true),
	StatusRespondingToOfficeAction: emailOnly("[{{.BrandName}}] Office action response in progress"),
	StatusPublicationAnnounced:     emailOnly("[{{.BrandName}}] Publication announced"),
	StatusRegistrationDecided:      emailAndSMS("[{{.BrandName}}] Registration decided", true),
	StatusAwaitingRegistrationFee:  emailAndSMS("[{{.BrandName}}] Registration fee payment required", false),
	StatusRegistrationFeePaid:      emailOnly("[{{.BrandName}}] Registration fee confirmed"),
	StatusRegistered:               emailAndSMS("[{{.BrandName}}] Trademark registered", true),
	StatusRejected:                 emailAndSMS("[{{.BrandName}}] Application rejected", true),
	StatusCancelled:                emailOnly("[{{.BrandName}}] Application cancelled"),
	StatusWithdrawn:                emailOnly("[{{.BrandName}}] Application withdrawn"),
}

// Template returns the notification template for status. Unknown input
// yields a template with no channels.
func Template(status Status) NotificationTemplate {
	t, ok := notificationTemplates[status]
	if !ok {
		return NotificationTemplate{}
	}
	t.Channels = append([]Channel(nil), t.Channels...)
	return t
}
