package account

import (
	"errors"
	"strings"
	"testing"
)

func TestUser_Validate(t *testing.T) {
	u := testUser(1, StatusValidated)
	if err := u.Validate(); err != nil {
		t.Fatalf("expected valid user, got %v", err)
	}
}

func TestUser_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*User)
		field  string
	}{
		{"missing role", func(u *User) { u.Role = nil }, "User.Role"},
		{"missing role name", func(u *User) { u.Role.Name = "" }, "User.Role.Name"},
		{"missing name", func(u *User) { u.FullName = "" }, "User.FullName"},
		{"bad email", func(u *User) { u.Email = "nope" }, "User.Email"},
		{"missing status", func(u *User) { u.Status = "" }, "User.Status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := testUser(1, StatusValidated)
			tt.mutate(u)
			err := u.Validate()
			if !errors.Is(err, ErrInvalidUser) {
				t.Fatalf("expected ErrInvalidUser, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected %s in %q", tt.field, err.Error())
			}
		})
	}
}

func TestUser_Validate_UnknownStatusAccepted(t *testing.T) {
	u := testUser(1, Status("archived"))
	if err := u.Validate(); err != nil {
		t.Errorf("expected unknown status to pass validation, got %v", err)
	}
}
