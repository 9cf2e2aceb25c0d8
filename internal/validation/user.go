package validation

import (
	"strings"

	"github.com/pranjalb21/kaviosPix/internal/apperr"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PasswordChange struct {
	Current string `json:"currentPassword" validate:"required"`
	New     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// NormalizeEmail trims and case-folds an address. Uniqueness is checked on
// the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func Signup(in Credentials) (Credentials, error) {
	in.Email = NormalizeEmail(in.Email)
	ve := &apperr.ValidationError{}
	collect(ve, in)
	return in, ve.OrNil()
}

func Login(in Credentials) (Credentials, error) {
	in.Email = NormalizeEmail(in.Email)
	ve := &apperr.ValidationError{}
	collect(ve, loginInput(in))
	return in, ve.OrNil()
}

func ChangePassword(in PasswordChange) (PasswordChange, error) {
	ve := &apperr.ValidationError{}
	collect(ve, in)
	if ve.OrNil() == nil && in.Current == in.New {
		ve.Add("newPassword must differ from currentPassword.")
	}
	return in, ve.OrNil()
}

// UserRefs checks a list of user external ids and removes duplicates.
func UserRefs(field string, uids []string) ([]string, error) {
	ve := &apperr.ValidationError{}
	out := dedupe(trimAll(uids), false)
	for _, uid := range out {
		checkVar(ve, field, uid, "uuid")
	}
	return out, ve.OrNil()
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dedupe keeps the first occurrence of each value, optionally lowercasing.
func dedupe(in []string, lower bool) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if lower {
			s = strings.ToLower(s)
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
