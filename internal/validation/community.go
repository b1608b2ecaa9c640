// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var communitySlugRegex = regexp.MustCompile(`^[a-z0-9-]{3,24}$`)

var reservedCommunitySlugs = map[string]struct{}{
	"admin":       {},
	"api":         {},
	"auth":        {},
	"settings":    {},
	"communities": {},
	"c":           {},
	"users":       {},
	"me":          {},
	"trending":    {},
	"letter":      {},
	"flairs":      {},
	"rules":       {},
	"bans":        {},
	"moderators":  {},
	"pending":     {},
	"metrics":     {},
	"login":       {},
	"signup":      {},
}

// SlugFromName derives a community slug from its display name: whitespace
// stripped, lowercased. The result still has to pass ValidateCommunitySlug.
func SlugFromName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// ValidateCommunitySlug validates community slug format and reserved names.
func ValidateCommunitySlug(slug string) error {
	if !communitySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 3-24 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedCommunitySlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

// ValidateCommunityName checks the display name of a community.
func ValidateCommunityName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 3 {
		return fmt.Errorf("community name must be at least 3 characters long")
	}
	if len(trimmed) > 120 {
		return fmt.Errorf("community name must not exceed 120 characters")
	}
	return nil
}
