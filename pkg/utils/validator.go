package utils

import (
	"fmt"
	"regexp"
)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateHexColor validates a 7-character #RRGGBB color string.
func ValidateHexColor(color string) error {
	if !hexColorRegex.MatchString(color) {
		return fmt.Errorf("invalid hex color: %q", color)
	}
	return nil
}

// ValidateDesignID validates a page decoration design id.
func ValidateDesignID(id int) error {
	if id < 1 || id > 5 {
		return fmt.Errorf("design id must be between 1 and 5: %d", id)
	}
	return nil
}

// ValidateMonth validates a calendar month.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12: %d", month)
	}
	return nil
}

// ValidateYear validates a plausible sheet year.
func ValidateYear(year int) error {
	if year < 2000 || year > 2200 {
		return fmt.Errorf("year out of range: %d", year)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text.
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
