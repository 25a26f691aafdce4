package details

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientdetails/internal/domain/account"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer executes the embedded page templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("root").Funcs(template.FuncMap{
		"badgeClass": badgeClass,
		"field":      newField,
		"iconSVG":    iconSVG,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustRenderer is NewRenderer for package-level initialisation and tests.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// RenderPage writes the full HTML document for p.
func (r *Renderer) RenderPage(w io.Writer, p Page) error {
	return r.tmpl.ExecuteTemplate(w, "document", p)
}

// RenderUser builds and renders the page for u into a byte slice.
func (r *Renderer) RenderUser(u account.User) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderPage(&buf, Build(u)); err != nil {
		return nil, fmt.Errorf("render user %d: %w", u.ID, err)
	}
	return buf.Bytes(), nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

func badgeClass(b Badge) string {
	return "badge badge--" + string(b.Variant)
}

// newField lets templates build ad-hoc fields: (field "Rôle" "user" .RoleName).
func newField(label, icon string, value ...string) Field {
	f := Field{Label: label, Icon: icon}
	if len(value) > 0 {
		f.Value = value[0]
	}
	return f
}
