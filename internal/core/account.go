package core

import (
	"errors"
	"strings"
)

var ErrInvalidAccount = errors.New("invalid account name")

// NormalizeAccount trims and lower-cases an account name and checks it against
// the chain's naming rules: 3 to 16 characters in dot-separated segments, each
// segment at least 3 characters, starting with a letter, ending with a letter
// or digit, and containing only lowercase letters, digits and hyphens.
func NormalizeAccount(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 || len(name) > 16 {
		return "", ErrInvalidAccount
	}
	for _, seg := range strings.Split(name, ".") {
		if len(seg) < 3 {
			return "", ErrInvalidAccount
		}
		if seg[0] < 'a' || seg[0] > 'z' {
			return "", ErrInvalidAccount
		}
		last := seg[len(seg)-1]
		if !isLowerAlnum(last) {
			return "", ErrInvalidAccount
		}
		for i := 0; i < len(seg); i++ {
			if c := seg[i]; !isLowerAlnum(c) && c != '-' {
				return "", ErrInvalidAccount
			}
		}
	}
	return name, nil
}

func isLowerAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
