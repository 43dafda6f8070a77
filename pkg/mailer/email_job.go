package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for the email worker.
// Template names one of the OTP templates (registration_otp, email_change_otp,
// reset_password_otp); Data feeds the template.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
