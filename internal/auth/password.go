package auth

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit
	MaxPasswordBytes = 72
	maxSimilarity    = 0.7
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// HashPassword returns a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckMissingUser burns the same bcrypt work as CheckPassword when no account
// exists, so login timing does not reveal which usernames are taken. It always fails.
func CheckMissingUser(password string) bool {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("missing-user-placeholder"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return false
}

// ValidatePassword returns the policy violations for password, empty when it is acceptable.
// attrs are user attributes (username, email) the password must not resemble.
func ValidatePassword(password string, attrs map[string]string) []string {
	var problems []string

	if tooSimilar, attr := similarToAttributes(password, attrs); tooSimilar {
		problems = append(problems, "The password is too similar to the "+attr+".")
	}
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, "This password is too long. It must contain at most 72 bytes.")
	}
	if commonPasswords[strings.ToLower(strings.TrimSpace(password))] {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var nonWord = regexp.MustCompile(`\W+`)

// attribute order keeps messages deterministic
var similarityAttributes = []struct{ key, label string }{
	{"username", "username"},
	{"first_name", "first name"},
	{"last_name", "last name"},
	{"email", "email address"},
}

func similarToAttributes(password string, attrs map[string]string) (bool, string) {
	pw := strings.ToLower(password)
	for _, a := range similarityAttributes {
		value := strings.ToLower(attrs[a.key])
		if value == "" {
			continue
		}
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if similarity(pw, part) >= maxSimilarity {
				return true, a.label
			}
		}
	}
	return false, ""
}

// similarity is the Ratcliff/Obershelp ratio: 2*matches / (len(a)+len(b)).
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// longest common substring
	bestI, bestJ, bestLen := 0, 0, 0
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestLen {
					bestI, bestJ, bestLen = i-cur[j], j-cur[j], cur[j]
				}
			}
		}
		prev = cur
	}
	if bestLen == 0 {
		return 0
	}
	return bestLen +
		matchingRunes(a[:bestI], b[:bestJ]) +
		matchingRunes(a[bestI+bestLen:], b[bestJ+bestLen:])
}

var commonPasswords = func() map[string]bool {
	m := make(map[string]bool)
	for _, p := range strings.Fields(`
		123456 password 12345678 qwerty 123456789 12345 1234 111111 1234567 dragon
		123123 baseball abc123 football monkey letmein 696969 shadow master 666666
		qwertyuiop 123321 mustang 1234567890 michael 654321 superman 1qaz2wsx 7777777
		121212 000000 qazwsx 123qwe killer trustno1 jordan jennifer zxcvbnm asdfgh
		hunter buster soccer harley batman andrew tigger sunshine iloveyou 2000
		charlie robert thomas hockey ranger daniel starwars klaster 112233 george
		computer michelle jessica pepper 1111 zxcvbn 555555 11111111 131313 freedom
		777777 pass maggie 159753 aaaaaa ginger princess joshua cheese amanda summer
		love ashley nicole chelsea biteme matthew access yankees 987654321 dallas
		austin thunder taylor matrix passw0rd password1 password123 welcome welcome1
		admin administrator login qwerty123 1q2w3e4r 1q2w3e4r5t changeme secret
		abcdefgh abcd1234 iloveyou1 football1 baseball1 trustno11 letmein1 monkey123
	`) {
		m[p] = true
	}
	return m
}()
