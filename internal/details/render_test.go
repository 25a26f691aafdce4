package details

import (
	"bytes"
	"html"
	"strings"
	"testing"
)

func renderString(t *testing.T, p Page) string {
	t.Helper()
	var buf bytes.Buffer
	if err := MustRenderer().RenderPage(&buf, p); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestRender_WithoutPatient(t *testing.T) {
	out := renderString(t, Build(baseUser()))

	for _, want := range []string{"Jean Dupont", "Informations personnelles", "Compte", "Non renseigné", "10 janvier 2024"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	for _, unwanted := range []string{"Informations médicales", "Genre", "Né(e) le"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("expected output not to contain %q", unwanted)
		}
	}
}

func TestRender_EmptyMedicalState(t *testing.T) {
	out := renderString(t, Build(patientUser()))

	if !strings.Contains(out, "Aucune information médicale spécifique") {
		t.Error("expected empty state message")
	}
	if strings.Contains(out, `class="note"`) {
		t.Error("expected no boxed medical sections")
	}
}

func TestRender_MedicalValues(t *testing.T) {
	out := renderString(t, Build(patientUser()))

	if !strings.Contains(out, "O&#43;") {
		t.Error("expected escaped blood group O&#43;")
	}
	text := html.UnescapeString(out)
	for _, want := range []string{`<div class="blood-group">`, "O+", "180 cm", "75 kg", "Groupe sanguin", "Taille", "Poids"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestRender_MedicalNotes(t *testing.T) {
	u := patientUser()
	u.Patient.Allergies = strPtr("Pollen")
	u.Patient.ChronicDiseases = strPtr("Asthme")
	out := renderString(t, Build(u))

	if strings.Count(out, `class="note"`) != 2 {
		t.Errorf("expected 2 boxed sections, got %d", strings.Count(out, `class="note"`))
	}
	if strings.Contains(out, "Aucune information médicale spécifique") {
		t.Error("expected no empty state when notes exist")
	}
}

func TestRender_StatusBadge(t *testing.T) {
	u := baseUser()
	u.Status = "blocked"
	out := renderString(t, Build(u))

	if !strings.Contains(out, `class="badge badge--danger"`) {
		t.Error("expected danger badge")
	}
	if !strings.Contains(out, "Bloqué") {
		t.Error("expected Bloqué label")
	}
}

func TestRender_EscapesUserContent(t *testing.T) {
	u := baseUser()
	u.FullName = `<script>alert(1)</script>`
	out := renderString(t, Build(u))

	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Error("expected user content to be escaped")
	}
}

func TestRender_Deterministic(t *testing.T) {
	u := patientUser()
	r := MustRenderer()

	first, err := r.RenderUser(u)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := r.RenderUser(u)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical output for identical input")
	}
}

func TestRender_EmptyStateIcon(t *testing.T) {
	out := renderString(t, Build(patientUser()))

	i := strings.Index(out, `class="empty-state"`)
	if i < 0 {
		t.Fatal("expected empty state block")
	}
	block := out[i:]
	if !strings.Contains(block, `<svg class="icon icon-file-warning"`) {
		t.Error("expected an inline svg icon in the empty state")
	}
	if !strings.Contains(block, string(iconPaths[IconFileWarning])) {
		t.Error("expected file-warning geometry in the empty state icon")
	}
}

func TestRender_BadgeIcon(t *testing.T) {
	out := renderString(t, Build(baseUser()))

	if !strings.Contains(out, `<svg class="icon icon-badge-check"`) {
		t.Error("expected badge-check icon on the validated badge")
	}
	if strings.Contains(out, "<i class=") {
		t.Error("expected no placeholder icon elements")
	}
}

func TestIconSVG(t *testing.T) {
	names := []string{
		IconMail, IconPhone, IconCalendar, IconUser, IconUserCircle, IconShield,
		IconFileText, IconHeart, IconDroplet, IconRuler, IconWeight, IconFileWarning,
		IconBadgeCheck, IconClock, IconAlertCircle, IconXCircle,
	}
	for _, name := range names {
		if iconSVG(name) == "" {
			t.Errorf("icon %q has no geometry", name)
		}
	}
	if iconSVG("unknown") != "" {
		t.Error("expected no geometry for an unknown icon")
	}
}
