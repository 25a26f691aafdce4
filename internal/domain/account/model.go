package account

import "errors"

// ErrUserNotFound is returned by repositories when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Status is the lifecycle state of a user account.
type Status string

const (
	StatusNew        Status = "new"
	StatusValidated  Status = "validated"
	StatusToValidate Status = "to_validate"
	StatusRejected   Status = "rejected"
	StatusBlocked    Status = "blocked"
)

// Statuses lists every member of the account status enumeration.
func Statuses() []Status {
	return []Status{StatusNew, StatusValidated, StatusToValidate, StatusRejected, StatusBlocked}
}

// ParseStatus returns the typed status and whether raw is part of the enumeration.
// Unknown values are kept as-is so they can still be displayed.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	return s, s.Known()
}

// Known reports whether s belongs to the closed enumeration.
func (s Status) Known() bool {
	switch s {
	case StatusNew, StatusValidated, StatusToValidate, StatusRejected, StatusBlocked:
		return true
	}
	return false
}

// Gender is the raw gender value stored on a patient record.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Role maps to the roles table.
type Role struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name" validate:"required"`
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`
}

// Patient maps to the patients table. A patient always belongs to exactly one user.
type Patient struct {
	ID                 int64    `db:"id" json:"id"`
	UserID             int64    `db:"user_id" json:"user_id"`
	BirthDay           *string  `db:"birth_day" json:"birth_day"`
	Gender             Gender   `db:"gender" json:"gender"`
	BloodGroup         *string  `db:"blood_group" json:"blood_group"`
	Allergies          *string  `db:"allergies" json:"allergies"`
	ChronicDiseases    *string  `db:"chronic_diseases" json:"chronic_diseases"`
	CurrentMedications *string  `db:"current_medications" json:"current_medications"`
	Weight             *float64 `db:"weight" json:"weight"`
	Height             *float64 `db:"height" json:"height"`
	InsuranceNumber    *string  `db:"insurance_number" json:"insurance_number"`
	DeletedAt          *string  `db:"deleted_at" json:"deleted_at"`
	CreatedAt          string   `db:"created_at" json:"created_at"`
	UpdatedAt          string   `db:"updated_at" json:"updated_at"`
}

// User maps to the users table with its role and optional patient record embedded.
type User struct {
	ID              int64    `db:"id" json:"id"`
	RoleID          int64    `db:"role_id" json:"role_id"`
	FullName        string   `db:"full_name" json:"full_name" validate:"required"`
	Telephone       *string  `db:"telephone" json:"telephone"`
	Email           string   `db:"email" json:"email" validate:"required,email"`
	Status          Status   `db:"status" json:"status" validate:"required"`
	EmailVerifiedAt *string  `db:"email_verified_at" json:"email_verified_at"`
	CreatedAt       string   `db:"created_at" json:"created_at"`
	UpdatedAt       string   `db:"updated_at" json:"updated_at"`
	Role            *Role    `json:"role" validate:"required"`
	Patient         *Patient `json:"patient,omitempty"`
}

// HasPatient reports whether a medical profile is attached to the user.
func (u *User) HasPatient() bool {
	return u.Patient != nil
}

// RoleName returns the embedded role's name, or "" when the role was not loaded.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}
