package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// MeetingAnnouncement is the data rendered into a new-meeting mail.
type MeetingAnnouncement struct {
	Title       string
	Description string
	Date        string
	StartTime   string
	EndTime     string
	Location    string
	Department  string
}

const announcementHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>New Meeting Scheduled</h2>
  <p>A new meeting <strong>{{.Title}}</strong> has been scheduled{{if .Department}} for {{.Department}}{{end}}.</p>
  <ul>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.StartTime}}{{if .EndTime}} - {{.EndTime}}{{end}}</li>
    {{- if .Location}}
    <li>Location: {{.Location}}</li>
    {{- end}}
  </ul>
  {{- if .Description}}
  <p>{{.Description}}</p>
  {{- end}}
</div>`

const announcementText = `A new meeting "{{.Title}}" has been scheduled{{if .Department}} for {{.Department}}{{end}}.
Date: {{.Date}}
Time: {{.StartTime}}{{if .EndTime}} - {{.EndTime}}{{end}}
{{- if .Location}}
Location: {{.Location}}
{{- end}}
{{- if .Description}}

{{.Description}}
{{- end}}
`

var (
	announcementHTMLTmpl = htmltemplate.Must(htmltemplate.New("announcement.html").Parse(announcementHTML))
	announcementTextTmpl = texttemplate.Must(texttemplate.New("announcement.txt").Parse(announcementText))
)

// RenderMeetingAnnouncement builds the mail for a freshly created meeting.
func RenderMeetingAnnouncement(a MeetingAnnouncement, to []Recipient) (Notification, error) {
	var html, text bytes.Buffer
	if err := announcementHTMLTmpl.Execute(&html, a); err != nil {
		return Notification{}, fmt.Errorf("notify: render html: %w", err)
	}
	if err := announcementTextTmpl.Execute(&text, a); err != nil {
		return Notification{}, fmt.Errorf("notify: render text: %w", err)
	}
	return Notification{
		Recipients: to,
		Subject:    "New Meeting Scheduled: " + a.Title,
		HTML:       html.String(),
		Text:       text.String(),
	}, nil
}
