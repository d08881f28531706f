// Package email builds and sends the report delivery email.
package email

import (
	"bytes"
	htmltemplate "html/template"
	"path/filepath"
	"strings"
	texttemplate "text/template"
)

// BodyData feeds the message templates.
type BodyData struct {
	CandidateName string
	CodebaseURL   string
	Reports       []string
}

const textBody = `Hello,

Please find attached the classified helpdesk requests report{{if gt (len .Reports) 1}}s{{end}}:
{{range .Reports}}  - {{.}}
{{end}}{{if .CodebaseURL}}
Source code: {{.CodebaseURL}}
{{end}}
Best regards,
{{.CandidateName}}
`

const htmlBody = `<html>
  <body>
    <p>Hello,</p>
    <p>Please find attached the classified helpdesk requests report{{if gt (len .Reports) 1}}s{{end}}:</p>
    <ul>{{range .Reports}}
      <li>{{.}}</li>{{end}}
    </ul>{{if .CodebaseURL}}
    <p>Source code: <a href="{{.CodebaseURL}}">{{.CodebaseURL}}</a></p>{{end}}
    <p>Best regards,<br>{{.CandidateName}}</p>
  </body>
</html>
`

var (
	textTemplate = texttemplate.Must(texttemplate.New("text").Parse(textBody))
	htmlTemplate = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

// Subject formats the delivery subject line.
func Subject(title, candidateName string) string {
	if strings.TrimSpace(candidateName) == "" {
		return title
	}
	return title + " - " + candidateName
}

// RenderBodies returns the plain text and HTML bodies. Report paths are
// shown by file name only.
func RenderBodies(data BodyData) (text, html string, err error) {
	names := make([]string, len(data.Reports))
	for i, report := range data.Reports {
		names[i] = filepath.Base(report)
	}
	data.Reports = names

	var textBuf, htmlBuf bytes.Buffer
	if err := textTemplate.Execute(&textBuf, data); err != nil {
		return "", "", err
	}
	if err := htmlTemplate.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}
	return textBuf.String(), htmlBuf.String(), nil
}
