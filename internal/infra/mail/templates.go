package mail

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"campus/internal/domain/service"
	"campus/internal/errors"
)

const (
	verificationSubject  = "Email Verification"
	passwordResetSubject = "Reset Your Password"

	verificationPath  = "/authentication/verify-email"
	passwordResetPath = "/authentication/resetpassword"
)

var (
	verificationTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Name}},</p>
<p>Please confirm your email address by clicking the link below.</p>
<p><a href="{{.Link}}">Verify Email</a></p>
<p>If you did not create an account, you can ignore this message.</p>
</body>
</html>`))

	passwordResetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Name}},</p>
<p>We received a request to reset your password. The link below is valid for 10 minutes.</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>If you did not request a password reset, you can ignore this message.</p>
</body>
</html>`))
)

type templateData struct {
	Name string
	Link string
}

// actionLink builds {origin}{path}?token=..&email=..
func actionLink(origin, path string, msg service.MailMessage) string {
	query := url.Values{}
	query.Set("token", msg.Token)
	query.Set("email", msg.Email)

	return strings.TrimRight(origin, "/") + path + "?" + query.Encode()
}

func render(tmpl *template.Template, path string, msg service.MailMessage) (string, error) {
	name := strings.TrimSpace(msg.FirstName + " " + msg.LastName)
	if name == "" {
		name = msg.Email
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{Name: name, Link: actionLink(msg.Origin, path, msg)}); err != nil {
		return "", errors.Wrapf(err, "failed to render %s mail", tmpl.Name())
	}

	return buf.String(), nil
}
