package details

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goodsign/monday"

	"github.com/ehr/patientdetails/internal/domain/account"
)

const (
	LabelUnavailable = "Non disponible"
	LabelInvalidDate = "Date invalide"
	LabelNotProvided = "Non renseigné"
)

// longDateLayout renders as "15 mars 1990" once passed through the French locale.
const longDateLayout = "02 January 2006"

// dateLayouts are tried in order. Fractional seconds are optional in the
// .999999999 layouts.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatDate renders raw as a French long-form date. Nil or empty input
// yields LabelUnavailable. Anything unparseable, whitespace included, yields
// LabelInvalidDate.
func FormatDate(raw *string) string {
	if raw == nil || *raw == "" {
		return LabelUnavailable
	}
	t, ok := parseDate(strings.TrimSpace(*raw))
	if !ok {
		return LabelInvalidDate
	}
	return monday.Format(t, longDateLayout, monday.LocaleFrFR)
}

// FormatDateString is FormatDate for non-nullable fields.
func FormatDateString(raw string) string {
	return FormatDate(&raw)
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Initials returns up to two uppercase letters taken from the first rune of
// each whitespace-separated word of name.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			out = append(out, unicode.ToUpper(r))
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// BadgeVariant is the visual category of a badge.
type BadgeVariant string

const (
	VariantSuccess BadgeVariant = "success"
	VariantWarning BadgeVariant = "warning"
	VariantDanger  BadgeVariant = "danger"
	VariantInfo    BadgeVariant = "info"
)

// Badge is a small labeled indicator. Icon is empty when the badge has none.
type Badge struct {
	Label   string       `json:"label"`
	Variant BadgeVariant `json:"variant"`
	Icon    string       `json:"icon,omitempty"`
}

// StatusBadge maps an account status to its badge. New accounts and any
// status outside the enumeration share the info badge.
func StatusBadge(s account.Status) Badge {
	switch s {
	case account.StatusValidated:
		return Badge{Label: "Validé", Variant: VariantSuccess, Icon: IconBadgeCheck}
	case account.StatusToValidate:
		return Badge{Label: "À valider", Variant: VariantWarning, Icon: IconClock}
	case account.StatusBlocked:
		return Badge{Label: "Bloqué", Variant: VariantDanger, Icon: IconAlertCircle}
	case account.StatusRejected:
		return Badge{Label: "Rejeté", Variant: VariantDanger, Icon: IconXCircle}
	case account.StatusNew:
		return newBadge
	default:
		return newBadge
	}
}

var newBadge = Badge{Label: "Nouveau", Variant: VariantInfo}

// GenderLabel returns the French label for g, or g unchanged when it is not
// male or female.
func GenderLabel(g account.Gender) string {
	switch g {
	case account.GenderMale:
		return "Homme"
	case account.GenderFemale:
		return "Femme"
	default:
		return string(g)
	}
}

// formatMeasure prints v without trailing zeros followed by unit.
func formatMeasure(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}

// present reports whether an optional text field carries a value.
func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
