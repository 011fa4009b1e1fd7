package validation

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// Categories is the closed set of help-request categories. Volunteer
// skill tags use the same set.
var Categories = []string{
	"medical", "transportation", "grocery", "technical",
	"companionship", "emergency", "other",
}

// Urgencies is the closed set of urgency levels.
var Urgencies = []string{"low", "medium", "high", "urgent"}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	return phone != "" && phoneRegex.MatchString(phone) && len(phone) <= 50
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 200
}

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 100
}

func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func ValidateCategory(category string) bool {
	return contains(Categories, category)
}

func ValidateUrgency(urgency string) bool {
	return contains(Urgencies, urgency)
}

func ValidateRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// ValidateSkills reports whether every tag is a known category.
func ValidateSkills(skills []string) bool {
	for _, s := range skills {
		if !contains(Categories, s) {
			return false
		}
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
