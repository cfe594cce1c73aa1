package domain

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		actual, required Role
		want             bool
	}{
		{RoleGuest, RoleGuest, true},
		{RoleGuest, RoleViewer, false},
		{RoleViewer, RoleMember, false},
		{RoleMember, RoleMember, true},
		{RoleMember, RoleAdmin, false},
		{RoleAdmin, RoleGuest, true},
		{RoleAdmin, RoleMember, true},
	}
	for _, tt := range tests {
		if got := tt.actual.AtLeast(tt.required); got != tt.want {
			t.Fatalf("%v.AtLeast(%v) = %v, want %v", tt.actual, tt.required, got, tt.want)
		}
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Fatalf("priority %q should be valid", p)
		}
	}
	if Priority("critical").Valid() {
		t.Fatal("priority outside the fixed scale should be invalid")
	}
}
