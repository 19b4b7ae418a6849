// Package notification delivers applicant notifications by email.
package notification

import (
	"bytes"
	"fmt"
	"text/template"

	licensingapp "github.com/umkm/backend/internal/application/licensing"
)

// Message is a rendered email
type Message struct {
	Subject string
	Body    string
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templateSources = map[string][2]string{
	licensingapp.TemplateSubmitted: {
		`Permohonan {{.license_type}} diterima`,
		`Permohonan "{{.title}}" ({{.application_id}}) telah diterima dengan prioritas {{.priority}}.
Perkiraan selesai: {{.estimated_completion}}.`,
	},
	licensingapp.TemplateApproved: {
		`Izin {{.license_type}} disetujui: {{.license_number}}`,
		`Permohonan "{{.title}}" telah disetujui.
Nomor izin: {{.license_number}}
Diterbitkan oleh: {{.issuing_authority}}
Tanggal terbit: {{.issue_date}}
{{if .expiry_date}}Berlaku sampai: {{.expiry_date}}
{{end}}`,
	},
	licensingapp.TemplateRejected: {
		`Permohonan {{.license_type}} ditolak`,
		`Permohonan "{{.title}}" ({{.application_id}}) ditolak.
Alasan: {{.reason}}`,
	},
	licensingapp.TemplateRevisionRequested: {
		`Permohonan {{.license_type}} memerlukan perbaikan dokumen`,
		`Permohonan "{{.title}}" ({{.application_id}}) memerlukan perbaikan.
Catatan peninjau: {{.comments}}`,
	},
	licensingapp.TemplateExpired: {
		`Izin {{.license_type}} telah kedaluwarsa`,
		`Izin {{.license_number}} untuk "{{.title}}" telah kedaluwarsa. Silakan ajukan permohonan baru.`,
	},
}

// Renderer renders notification templates
type Renderer struct {
	templates map[string]messageTemplate
}

// NewRenderer parses the built-in templates
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]messageTemplate, len(templateSources))}
	for name, src := range templateSources {
		subject, err := template.New(name + ".subject").Option("missingkey=zero").Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Option("missingkey=zero").Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", name, err)
		}
		r.templates[name] = messageTemplate{subject: subject, body: body}
	}
	return r, nil
}

// Render renders the named template with vars. Missing variables render empty.
func (r *Renderer) Render(name string, vars map[string]string) (Message, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("template not found: %s", name)
	}
	if vars == nil {
		vars = map[string]string{}
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, vars); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.body.Execute(&body, vars); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", name, err)
	}
	return Message{Subject: subject.String(), Body: body.String()}, nil
}
