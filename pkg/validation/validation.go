package validation

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// HostRegex validates a DNS host name or IPv4 literal
	HostRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

	// CategoryRegex validates meta content category names
	CategoryRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// ValidateURL validates URL format
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid URL scheme (must be http, https, ws, or wss)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidatePathPrefix checks that s is a clean absolute path below prefix
func ValidatePathPrefix(s, prefix, fieldName string) error {
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	if !strings.HasPrefix(s, prefix) || len(s) == len(prefix) {
		return fmt.Errorf("%s must point into %s", fieldName, prefix)
	}
	if strings.Contains(s, "..") || strings.ContainsAny(s, "\\?#") {
		return fmt.Errorf("%s contains invalid path characters", fieldName)
	}
	return nil
}

// ValidateHost validates a host name for outbound lookups
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host is required")
	}
	if len(host) > 253 {
		return fmt.Errorf("host is too long (max 253 characters)")
	}
	if ip := net.ParseIP(host); ip != nil {
		return nil
	}
	if !HostRegex.MatchString(host) {
		return fmt.Errorf("invalid host format")
	}
	return nil
}

// ValidatePort validates a TCP port given as a string
func ValidatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// ValidateCategory validates a content category name
func ValidateCategory(category string) error {
	if category == "" {
		return fmt.Errorf("category is required")
	}
	if len(category) > 32 || !CategoryRegex.MatchString(category) {
		return fmt.Errorf("invalid category format")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
