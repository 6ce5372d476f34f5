package service

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"

	"github.com/tasktracker/task-api/internal/core/domain"
)

func TestDefaultPasswordPolicy(t *testing.T) {
	policy := DefaultPasswordPolicy()

	cases := []struct {
		password string
		username string
		email    string
		wantErr  bool
	}{
		{"correct-horse-battery", "alice", "alice@example.com", false},
		{"short1", "alice", "", true},
		{"98765432109", "alice", "", true},
		{"Password123", "alice", "", true},
		{"alice-in-wonderland", "alice", "", true},
		{"zed-the-great-9", "bob", "zed-the-great@example.com", true},
		{"tr0ub4dor&3", "al", "", false}, // attributes shorter than 3 are ignored
	}

	for _, tc := range cases {
		err := policy.Validate(tc.password, tc.username, tc.email)
		if (err != nil) != tc.wantErr {
			t.Errorf("password=%q: wantErr=%v, got %v", tc.password, tc.wantErr, err)
		}
		if err != nil && !errors.Is(err, domain.ErrValidation) {
			t.Errorf("password=%q: expected ErrValidation, got %v", tc.password, err)
		}
	}
}

func TestPasswordPolicy_ReportsEveryFailure(t *testing.T) {
	err := DefaultPasswordPolicy().Validate("9183", "bob", "")

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// too short + entirely numeric
	if got := len(verr.Fields["password"]); got != 2 {
		t.Fatalf("expected 2 messages, got %d: %v", got, verr.Fields["password"])
	}
}

func TestPasswordPolicy_Pluggable(t *testing.T) {
	policy := NewPasswordPolicy(MinimumLength(4))

	if err := policy.Validate("1234", "bob", ""); err != nil {
		t.Fatalf("custom policy should accept numeric password: %v", err)
	}
}

func TestCommonPassword_BuiltinList(t *testing.T) {
	for _, pw := range []string{"liverpool", "Basketball", "qwertyuiop123", "1q2w3e4r5t"} {
		if msg := CommonPassword(pw, "", ""); msg == "" {
			t.Errorf("%q should be rejected as common", pw)
		}
	}
	if msg := CommonPassword("plum-orbit-kettle", "", ""); msg != "" {
		t.Errorf("unexpected rejection: %s", msg)
	}
}

func TestReadPasswordList(t *testing.T) {
	plain := "Hunter2\n\n  opensesame  \n"

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write([]byte(plain)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	for name, r := range map[string]*bytes.Reader{
		"plain": bytes.NewReader([]byte(plain)),
		"gzip":  bytes.NewReader(gz.Bytes()),
	} {
		list, err := ReadPasswordList(r)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(list) != 2 {
			t.Fatalf("%s: expected 2 entries, got %v", name, list)
		}

		policy := PasswordPolicyWithList(list)
		if err := policy.Validate("OpenSesame", "bob", ""); err == nil {
			t.Errorf("%s: listed password accepted", name)
		}
		if err := policy.Validate("liverpool", "bob", ""); err != nil {
			t.Errorf("%s: custom list should replace the built-in one: %v", name, err)
		}
	}
}

func TestReadPasswordList_CorruptGzip(t *testing.T) {
	_, err := ReadPasswordList(strings.NewReader("\x1f\x8bnot gzip"))
	if err == nil {
		t.Fatal("expected error for corrupt gzip data")
	}
}
