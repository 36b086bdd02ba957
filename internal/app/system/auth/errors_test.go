package auth

import (
	"fmt"
	"testing"
)

func TestAuthError_Messages(t *testing.T) {
	tests := []struct {
		kind AuthErrorKind
		want string
	}{
		{InvalidCredentials, MsgInvalidCredentials},
		{UnknownAccount, MsgUnknownAccount},
		{Disabled, MsgDisabled},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			if got := NewAuthError(tc.kind).Error(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}

	custom := &AuthError{Kind: RateLimited, Message: "slow down"}
	if custom.Error() != "slow down" {
		t.Errorf("expected custom message, got %q", custom.Error())
	}
}

func TestAsAuthError(t *testing.T) {
	wrapped := fmt.Errorf("sign in: %w", NewAuthError(Disabled))
	ae, ok := AsAuthError(wrapped)
	if !ok {
		t.Fatal("expected wrapped AuthError to unwrap")
	}
	if ae.Kind != Disabled {
		t.Errorf("expected kind disabled, got %s", ae.Kind)
	}
	if _, ok := AsAuthError(fmt.Errorf("plain")); ok {
		t.Error("expected plain error not to be an AuthError")
	}
}
