package domain

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateLayout is the canonical (class, date) scope date format.
const DateLayout = "2006-01-02"

// Identity names one student. RegNo is the stable key; Name is display only.
type Identity struct {
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
}

// Normalized returns the identity with trimmed fields and a title-cased name.
func (i Identity) Normalized() Identity {
	return Identity{
		Name:  NormalizeName(i.Name),
		RegNo: strings.TrimSpace(i.RegNo),
	}
}

// Validate reports missing fields.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.RegNo) == "" {
		return ErrValidationFailed.WithError(errors.New("reg_no is required"))
	}
	if strings.TrimSpace(i.Name) == "" {
		return ErrValidationFailed.WithError(errors.New("name is required"))
	}
	return nil
}

// NormalizeName collapses whitespace and title-cases every word,
// so "  jOHN   doe " becomes "John Doe".
func NormalizeName(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	// Casers keep state and are not safe to share.
	caser := cases.Title(language.Und)
	return caser.String(strings.Join(words, " "))
}

// Student is a registry entry.
type Student struct {
	RegNo       string `json:"reg_no"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	ParentEmail string `json:"parent_email,omitempty"`
}

// Identity returns the student's identity.
func (s Student) Identity() Identity {
	return Identity{Name: s.Name, RegNo: s.RegNo}
}

// ValidateClass rejects class names that could escape a storage root.
func ValidateClass(class string) error {
	if class == "" || class == "." || class == ".." ||
		strings.ContainsAny(class, `/\`) || strings.ContainsRune(class, 0) {
		return ErrInvalidClass
	}
	return nil
}

// ValidateRegNo rejects registration numbers unusable as file names.
func ValidateRegNo(regNo string) error {
	if regNo == "" || regNo == "." || regNo == ".." ||
		strings.ContainsAny(regNo, `/\`) || strings.ContainsRune(regNo, 0) {
		return ErrValidationFailed.WithError(errors.New("reg_no is empty or contains path separators"))
	}
	return nil
}

// ParseDate validates a YYYY-MM-DD scope date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, ErrInvalidDate.WithError(err)
	}
	return t, nil
}
