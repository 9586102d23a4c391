// ABOUTME: Ordered name/password policy checks for account creation
// ABOUTME: Reports only the first violated rule; callers fix and resubmit

package account

import (
	"errors"
	"regexp"
)

// Policy violation errors, one per rule, in check order.
var (
	ErrBadEntry           = errors.New("malformed account entry")
	ErrNameTooShort       = errors.New("account name too short")
	ErrNameTooLong        = errors.New("account name too long")
	ErrPassTooShort       = errors.New("password too short")
	ErrPassNoNums         = errors.New("password needs a digit")
	ErrPassNoBigChars     = errors.New("password needs an uppercase letter")
	ErrPassNoSmallChars   = errors.New("password needs a lowercase letter")
	ErrPassNoSpecialChars = errors.New("password needs a special character")
)

var (
	digitRegex   = regexp.MustCompile(`[0-9]`)
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	specialRegex = regexp.MustCompile(`\W`)
)

// Policy holds the configurable name/password requirements.
type Policy struct {
	NameMinLength  int
	NameMaxLength  int
	PassMinLength  int
	RequireNums    bool
	RequireCase    bool
	RequireSpecial bool
}

// Check validates an entry against the policy. Rules are evaluated in a
// fixed order and the first violation short-circuits.
func (p Policy) Check(e Entry) error {
	switch {
	case e.Name == "" || e.Password == "":
		return ErrBadEntry
	case len(e.Name) < p.NameMinLength:
		return ErrNameTooShort
	case len(e.Name) > p.NameMaxLength:
		return ErrNameTooLong
	case len(e.Password) < p.PassMinLength:
		return ErrPassTooShort
	case p.RequireNums && !digitRegex.MatchString(e.Password):
		return ErrPassNoNums
	case p.RequireCase && !upperRegex.MatchString(e.Password):
		return ErrPassNoBigChars
	case p.RequireCase && !lowerRegex.MatchString(e.Password):
		return ErrPassNoSmallChars
	case p.RequireSpecial && !specialRegex.MatchString(e.Password):
		return ErrPassNoSpecialChars
	}
	return nil
}
