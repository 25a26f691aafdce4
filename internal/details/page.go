package details

import (
	"strings"

	"github.com/ehr/patientdetails/internal/domain/account"
)

// Icon names. The "icon" template draws each one as an inline SVG.
const (
	IconMail        = "mail"
	IconPhone       = "phone"
	IconCalendar    = "calendar"
	IconUser        = "user"
	IconUserCircle  = "user-circle"
	IconShield      = "shield"
	IconFileText    = "file-text"
	IconHeart       = "heart"
	IconDroplet     = "droplet"
	IconRuler       = "ruler"
	IconWeight      = "weight"
	IconFileWarning = "file-warning"
	IconBadgeCheck  = "badge-check"
	IconClock       = "clock"
	IconAlertCircle = "alert-circle"
	IconXCircle     = "x-circle"
)

// Field is one labeled value inside a panel.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  string `json:"icon,omitempty"`
}

// Header is the summary block at the top of the page.
type Header struct {
	Initials string  `json:"initials"`
	FullName string  `json:"full_name"`
	Status   Badge   `json:"status"`
	RoleName string  `json:"role_name"`
	Contacts []Field `json:"contacts"`
}

// AccountPanel is always rendered.
type AccountPanel struct {
	RoleName     string `json:"role_name"`
	Status       Badge  `json:"status"`
	RegisteredOn string `json:"registered_on"`
	UpdatedOn    string `json:"updated_on"`
}

// MedicalPanel only exists for users with a patient record.
type MedicalPanel struct {
	BloodGroup string  `json:"blood_group,omitempty"`
	Measures   []Field `json:"measures,omitempty"`
	Notes      []Field `json:"notes,omitempty"`
}

// Empty reports whether none of the free-text medical sections has content.
func (m *MedicalPanel) Empty() bool {
	return len(m.Notes) == 0
}

// Page is the full view model of the details screen.
type Page struct {
	Title    string        `json:"title"`
	Header   Header        `json:"header"`
	Personal []Field       `json:"personal"`
	Account  AccountPanel  `json:"account"`
	Medical  *MedicalPanel `json:"medical,omitempty"`
}

// Build computes the view model for u. It has no side effects.
func Build(u account.User) Page {
	status := StatusBadge(u.Status)
	roleName := u.RoleName()

	page := Page{
		Title: u.FullName,
		Header: Header{
			Initials: Initials(u.FullName),
			FullName: u.FullName,
			Status:   status,
			RoleName: roleName,
		},
		Account: AccountPanel{
			RoleName:     roleName,
			Status:       status,
			RegisteredOn: FormatDateString(u.CreatedAt),
			UpdatedOn:    FormatDateString(u.UpdatedAt),
		},
	}

	page.Header.Contacts = append(page.Header.Contacts, Field{Label: "Email", Value: u.Email, Icon: IconMail})
	if present(u.Telephone) {
		page.Header.Contacts = append(page.Header.Contacts, Field{Label: "Téléphone", Value: *u.Telephone, Icon: IconPhone})
	}

	page.Personal = []Field{
		{Label: "Nom complet", Value: u.FullName},
		{Label: "Email", Value: u.Email, Icon: IconMail},
	}

	if u.HasPatient() {
		p := *u.Patient
		if present(p.BirthDay) {
			page.Header.Contacts = append(page.Header.Contacts, Field{
				Label: "Date de naissance",
				Value: "Né(e) le " + FormatDate(p.BirthDay),
				Icon:  IconCalendar,
			})
		}
		page.Personal = append(page.Personal,
			Field{Label: "Genre", Value: GenderLabel(p.Gender), Icon: IconUser},
			Field{Label: "Date de naissance", Value: FormatDate(p.BirthDay), Icon: IconCalendar},
		)
	}

	phone := LabelNotProvided
	if present(u.Telephone) {
		phone = *u.Telephone
	}
	page.Personal = append(page.Personal, Field{Label: "Téléphone", Value: phone, Icon: IconPhone})

	if u.HasPatient() && present(u.Patient.InsuranceNumber) {
		page.Personal = append(page.Personal, Field{
			Label: "Numéro d'assurance",
			Value: *u.Patient.InsuranceNumber,
			Icon:  IconShield,
		})
	}

	if u.HasPatient() {
		page.Medical = buildMedical(*u.Patient)
	}
	return page
}

func buildMedical(p account.Patient) *MedicalPanel {
	m := &MedicalPanel{}
	if present(p.BloodGroup) {
		m.BloodGroup = strings.TrimSpace(*p.BloodGroup)
	}
	// A zero height or weight is treated as not measured.
	if p.Height != nil && *p.Height != 0 {
		m.Measures = append(m.Measures, Field{Label: "Taille", Value: formatMeasure(*p.Height, "cm"), Icon: IconRuler})
	}
	if p.Weight != nil && *p.Weight != 0 {
		m.Measures = append(m.Measures, Field{Label: "Poids", Value: formatMeasure(*p.Weight, "kg"), Icon: IconWeight})
	}
	if present(p.Allergies) {
		m.Notes = append(m.Notes, Field{Label: "Allergies", Value: *p.Allergies})
	}
	if present(p.ChronicDiseases) {
		m.Notes = append(m.Notes, Field{Label: "Maladies chroniques", Value: *p.ChronicDiseases})
	}
	if present(p.CurrentMedications) {
		m.Notes = append(m.Notes, Field{Label: "Médicaments actuels", Value: *p.CurrentMedications})
	}
	return m
}
