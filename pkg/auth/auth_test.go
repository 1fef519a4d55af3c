package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthenticator("test-secret-0123456789")

	token, err := a.Issue(Identity{UserID: "u-1", Username: "alice", Role: RoleClient}, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	identity, err := a.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if identity.UserID != "u-1" || identity.Role != RoleClient || identity.Username != "alice" {
		t.Errorf("Parse() = %+v", identity)
	}
}

func TestParse_Rejects(t *testing.T) {
	a := NewAuthenticator("test-secret-0123456789")
	other := NewAuthenticator("another-secret-987654321")

	foreign, _ := other.Issue(Identity{UserID: "u-1", Role: RoleClient}, time.Minute)

	expired := NewAuthenticator("test-secret-0123456789")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.Issue(Identity{UserID: "u-1", Role: RoleClient}, time.Minute)

	noRole, _ := a.Issue(Identity{UserID: "u-1"}, time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", foreign},
		{"expired", stale},
		{"missing role", noRole},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Parse(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{UserID: "u-2", Role: RoleAML})
	identity, ok := FromContext(ctx)
	if !ok || identity.UserID != "u-2" {
		t.Fatalf("FromContext() = %+v, %v", identity, ok)
	}
	if !identity.HasRole(RoleAdmin, RoleAML) {
		t.Error("HasRole should match aml")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext on empty context should be false")
	}
}
