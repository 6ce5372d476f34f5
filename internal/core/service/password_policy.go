package service

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/tasktracker/task-api/internal/core/domain"
)

const (
	minPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

// PasswordRule returns a message when password breaks the rule, "" otherwise.
type PasswordRule func(password, username, email string) string

// PasswordPolicy runs every rule and reports all failures at once.
type PasswordPolicy struct {
	rules []PasswordRule
}

// NewPasswordPolicy builds a policy from the given rules.
func NewPasswordPolicy(rules ...PasswordRule) *PasswordPolicy {
	return &PasswordPolicy{rules: rules}
}

// DefaultPasswordPolicy mirrors the usual web-framework defaults: similarity
// to user attributes, minimum length, common passwords, all-numeric.
func DefaultPasswordPolicy() *PasswordPolicy {
	return PasswordPolicyWithList(builtinPasswords())
}

// PasswordPolicyWithList is DefaultPasswordPolicy checking against list
// instead of the built-in common passwords.
func PasswordPolicyWithList(list PasswordList) *PasswordPolicy {
	return NewPasswordPolicy(
		UserAttributeSimilarity,
		MinimumLength(minPasswordLen),
		MaximumBytes(maxPasswordBytes),
		CommonPasswords(list),
		NumericPassword,
	)
}

// Validate satisfies ports.PasswordValidator.
func (p *PasswordPolicy) Validate(password, username, email string) error {
	verr := &domain.ValidationError{}
	for _, rule := range p.rules {
		if msg := rule(password, username, email); msg != "" {
			verr.Add("password", msg)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func MinimumLength(n int) PasswordRule {
	return func(password, _, _ string) string {
		if len([]rune(password)) < n {
			return fmt.Sprintf("This password is too short. It must contain at least %d characters.", n)
		}
		return ""
	}
}

func MaximumBytes(n int) PasswordRule {
	return func(password, _, _ string) string {
		if len(password) > n {
			return fmt.Sprintf("This password is too long. It must contain at most %d bytes.", n)
		}
		return ""
	}
}

func NumericPassword(password, _, _ string) string {
	if password == "" {
		return ""
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return "This password is entirely numeric."
}

// CommonPassword checks against the built-in list.
func CommonPassword(password, username, email string) string {
	return CommonPasswords(builtinPasswords())(password, username, email)
}

// CommonPasswords rejects any password found in list, case-insensitively.
func CommonPasswords(list PasswordList) PasswordRule {
	return func(password, _, _ string) string {
		if _, ok := list[strings.ToLower(strings.TrimSpace(password))]; ok {
			return "This password is too common."
		}
		return ""
	}
}

// PasswordList is a set of lower-cased passwords.
type PasswordList map[string]struct{}

//go:embed common_passwords.txt
var builtinPasswordFile []byte

var builtinPasswords = sync.OnceValue(func() PasswordList {
	list, err := ReadPasswordList(bytes.NewReader(builtinPasswordFile))
	if err != nil {
		panic("password list: " + err.Error())
	}
	return list
})

// ReadPasswordList reads one password per line. Gzip input, such as the
// common-passwords.txt.gz shipped with Django, is detected and unpacked.
func ReadPasswordList(r io.Reader) (PasswordList, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip password list: %w", err)
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	list := make(PasswordList)
	sc := bufio.NewScanner(br)
	for sc.Scan() {
		if pw := strings.ToLower(strings.TrimSpace(sc.Text())); pw != "" {
			list[pw] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read password list: %w", err)
	}
	return list, nil
}

// UserAttributeSimilarity rejects passwords that contain, or are contained
// in, the username or the local part of the email.
func UserAttributeSimilarity(password, username, email string) string {
	pw := strings.ToLower(password)
	attrs := []struct{ name, value string }{
		{"username", username},
		{"email address", emailLocalPart(email)},
	}
	for _, a := range attrs {
		v := strings.ToLower(strings.TrimSpace(a.value))
		if len(v) < 3 {
			continue
		}
		if strings.Contains(pw, v) || (len(pw) >= 3 && strings.Contains(v, pw)) {
			return "The password is too similar to the " + a.name + "."
		}
	}
	return ""
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
