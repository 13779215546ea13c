package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"

	domainEmail "device-fleet-manager/internal/domain/email"
)

//go:embed templates/*.html
var embedded embed.FS

var subjects = map[string]string{
	domainEmail.TemplateResetPassword:     "Reset your password",
	domainEmail.TemplateCreateAccount:     "Your account has been created",
	domainEmail.TemplateActivateAccount:   "Your account has been activated",
	domainEmail.TemplateDeactivateAccount: "Your account has been deactivated",
	domainEmail.TemplateActivateDevice:    "Device activated",
	domainEmail.TemplateDeactivateDevice:  "Device deactivated",
}

// Templates renders the HTML body and subject of each email template.
type Templates struct {
	sets map[string]*template.Template
}

// LoadTemplates parses the templates in dir, or the embedded set when dir is
// empty.
func LoadTemplates(dir string) (*Templates, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	t := &Templates{sets: make(map[string]*template.Template, len(subjects))}
	for id := range subjects {
		set, err := template.New(id).ParseFS(fsys, "layout.html", id+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", id, err)
		}
		t.sets[id] = set
	}
	return t, nil
}

func (t *Templates) Render(templateID string, data map[string]interface{}) (string, string, error) {
	set, ok := t.sets[templateID]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", templateID)
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("failed to render template %s: %w", templateID, err)
	}

	return subjects[templateID], buf.String(), nil
}
