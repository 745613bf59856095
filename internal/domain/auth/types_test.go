package auth

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in               string
		want             Role
		faculty, student bool
	}{
		{" faculty ", RoleFaculty, true, false},
		{"Student", RoleStudent, false, true},
		{"admin", Role("ADMIN"), false, false},
		{"", Role(""), false, false},
	}
	for _, tt := range tests {
		r := ParseRole(tt.in)
		if r != tt.want || r.IsFaculty() != tt.faculty || r.IsStudent() != tt.student {
			t.Fatalf("ParseRole(%q) = %q (faculty=%v student=%v)", tt.in, r, r.IsFaculty(), r.IsStudent())
		}
	}
}

func TestGrant_Valid(t *testing.T) {
	if !(Grant{Token: "t1", User: User{Role: RoleFaculty}}).Valid() {
		t.Fatal("grant with a token and no email must be valid")
	}
	if (Grant{User: User{Email: "a@b.c"}}).Valid() {
		t.Fatal("grant without a token must be invalid")
	}
	if !(Grant{Token: "t1", User: User{Email: "a@b.c"}}).Valid() {
		t.Fatal("expected valid grant")
	}
}

func TestSession_Empty(t *testing.T) {
	if !(Session{}).Empty() {
		t.Fatal("zero session must be empty")
	}
	if (Session{Token: "t1", User: &User{Email: "a@b.c"}}).Empty() {
		t.Fatal("signed-in session must not be empty")
	}
}
