package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"admin@vprep.fr", "planner.lyon+1@agency.co", "a@b.cd"}
	invalid := []string{"admin@", "@vprep.fr", "admin@.com", "admin@fr", " ", ""}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123E4567-E89B-42D3-A456-426614174000",
	}
	invalid := []string{
		"123e4567-e89b-02d3-a456-426614174000", // version 0
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"",
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2025-01-15", "2000-12-31"}
	invalid := []string{"2025-13-01", "15/01/2025", ""}
	for _, s := range valid {
		if _, ok := IsValidDate(s); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidClock(t *testing.T) {
	valid := []string{"08:00", "23:59", "00:00"}
	invalid := []string{"24:00", "8h00", "08:60", ""}
	for _, s := range valid {
		if !IsValidClock(s) {
			t.Errorf("IsValidClock(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidClock(s) {
			t.Errorf("IsValidClock(%q) = true, want false", s)
		}
	}
}

func TestMaxLength(t *testing.T) {
	if !MaxLength("éèà", 3) {
		t.Error("MaxLength counts runes, want true for 3 runes")
	}
	if MaxLength("abcd", 3) {
		t.Error("MaxLength(abcd, 3) = true, want false")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "worker_id", Message: "worker_id is required"},
		{Field: "agency_id", Message: "agency_id is required"},
	}
	if got := errs.Error(); got != "worker_id: worker_id is required; agency_id: agency_id is required" {
		t.Errorf("Error() = %q", got)
	}
	if m := errs.ToMap(); len(m) != 2 || m["agency_id"] != "agency_id is required" {
		t.Errorf("ToMap() = %v", m)
	}
}
