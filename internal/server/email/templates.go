package email

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

const (
	subjectVerification       = "Verify Your Email - Chill Habit Tracker"
	subjectPasswordReset      = "Reset Your Password - Chill Habit Tracker"
	subjectPasswordChanged    = "Password Changed Successfully - Chill Habit Tracker"
	verificationLinkValidity  = "24 hours"
	passwordResetLinkValidity = "1 hour"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`
<div style="max-width: 500px; margin: 0 auto; font-family: Arial, sans-serif;">
  <h1>Welcome to Chill Habit Tracker!</h1>
  <h2>Hi {{.Username}}!</h2>
  <p>Thanks for signing up! We're excited to help you build better habits, one day at a time.</p>
  <p>Please verify your email address by clicking the button below:</p>
  <p><a href="{{.URL}}">Verify Email Address</a></p>
  <p>If the button doesn't work, copy and paste this link:</p>
  <p>{{.URL}}</p>
  <p><strong>Security Note:</strong> This link expires in {{.Validity}}.</p>
  <p>If you didn't create an account, please ignore this email.</p>
</div>
`))

var passwordResetTmpl = template.Must(template.New("password-reset").Parse(`
<div style="max-width: 500px; margin: 0 auto; font-family: Arial, sans-serif;">
  <h1>Password Reset Request</h1>
  <h2>Hi {{.Username}}!</h2>
  <p>We received a request to reset your password for your Chill Habit Tracker account.</p>
  <p>Click the button below to reset your password:</p>
  <p><a href="{{.URL}}">Reset Password</a></p>
  <p>If the button doesn't work, copy and paste this link:</p>
  <p>{{.URL}}</p>
  <p><strong>Security Note:</strong> This link expires in {{.Validity}}.</p>
  <p>If you didn't request this, please ignore this email. Your password will remain unchanged.</p>
</div>
`))

var passwordChangedTmpl = template.Must(template.New("password-changed").Parse(`
<div style="max-width: 500px; margin: 0 auto; font-family: Arial, sans-serif;">
  <h1>Password Changed Successfully</h1>
  <h2>Hi {{.Username}}!</h2>
  <p>Your password has been successfully changed for your Chill Habit Tracker account.</p>
  <p>If you made this change, no further action is required.</p>
  <p><strong>Didn't make this change?</strong> Please contact support or reset your password again.</p>
  <p><strong>Changed on:</strong> {{.ChangedAt}}</p>
</div>
`))

type linkMailData struct {
	Username string
	URL      string
	Validity string
}

type changedMailData struct {
	Username  string
	ChangedAt string
}

func renderVerificationBody(frontendURL, username, token string) (string, error) {
	return render(verificationTmpl, linkMailData{
		Username: username,
		URL:      fmt.Sprintf("%s/verify-email?token=%s", frontendURL, token),
		Validity: verificationLinkValidity,
	})
}

func renderPasswordResetBody(frontendURL, username, token string) (string, error) {
	return render(passwordResetTmpl, linkMailData{
		Username: username,
		URL:      fmt.Sprintf("%s/reset-password?token=%s", frontendURL, token),
		Validity: passwordResetLinkValidity,
	})
}

func renderPasswordChangedBody(username string, changedAt time.Time) (string, error) {
	return render(passwordChangedTmpl, changedMailData{
		Username:  username,
		ChangedAt: changedAt.Format(time.RFC1123),
	})
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
