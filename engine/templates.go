package engine

import (
	"bytes"
	"fmt"
	"text/template"

	"jobtrail/models"
)

// Embedded follow-up email templates, keyed by reminder type. The rendered
// text is stored on the reminder at creation and never regenerated.
var followUpTemplates = map[models.ReminderType]string{
	models.ReminderApplicationFollowUp: `Subject: Following up on my application - {{.Title}}

Hi {{.Company}} team,

I applied for the {{.Title}} position recently and wanted to check in on the
status of my application. I remain very interested in the role and would be
happy to provide any additional information.

Best regards`,

	models.ReminderPhoneScreenFollowUp: `Subject: Thank you - {{.Title}} phone screen

Hi {{.Company}} team,

Thank you for taking the time to speak with me about the {{.Title}} role.
I wanted to follow up and ask about next steps in the process.

Best regards`,

	models.ReminderInterviewFollowUp: `Subject: Thank you - {{.Title}} interview

Hi {{.Company}} team,

Thank you for the interview for the {{.Title}} position. I enjoyed our
conversation and am excited about the opportunity. Please let me know if you
need anything further from my side.

Best regards`,
}

type templateParams struct {
	Title   string
	Company string
}

// RenderFollowUpTemplate produces the stored email text for a reminder
func RenderFollowUpTemplate(reminderType models.ReminderType, job *models.Job) (string, error) {
	raw, ok := followUpTemplates[reminderType]
	if !ok {
		return "", fmt.Errorf("no template for reminder type %q", reminderType)
	}

	tmpl, err := template.New(string(reminderType)).Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateParams{Title: job.Title, Company: job.Company}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
