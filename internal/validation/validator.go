package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

const maxURLLength = 2048

// submissionDTO is validated with go-playground/validator tags before any
// hand-rolled SSRF logic runs, catching malformed shape cheaply.
type submissionDTO struct {
	URL   string `validate:"required,max=2048"`
	Email string `validate:"omitempty,email"`
}

// Validator implements interfaces.SubmissionValidator. It rejects malformed
// input and, outside development, targets that resolve to loopback,
// link-local, or private address space.
type Validator struct {
	validate    *validator.Validate
	production  bool
}

// NewValidator builds a Validator. production gates SSRF strictness: in
// development, loopback/private targets are allowed so the crawler can be
// exercised against a local test server.
func NewValidator(production bool) interfaces.SubmissionValidator {
	return &Validator{validate: validator.New(), production: production}
}

func (v *Validator) ValidateURL(raw string) (string, *interfaces.ValidationError) {
	dto := submissionDTO{URL: raw}
	if err := v.validate.StructPartial(dto, "URL"); err != nil {
		return "", &interfaces.ValidationError{Field: "url", Message: "must be a non-empty URL of at most 2048 characters"}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", &interfaces.ValidationError{Field: "url", Message: "malformed URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &interfaces.ValidationError{Field: "url", Message: "Only HTTP and HTTPS URLs are allowed."}
	}
	if parsed.Host == "" {
		return "", &interfaces.ValidationError{Field: "url", Message: "host is empty"}
	}

	if v.production {
		if err := v.rejectUnsafeTarget(parsed); err != nil {
			return "", err
		}
	}

	parsed.Fragment = ""
	return parsed.String(), nil
}

// rejectUnsafeTarget blocks loopback, link-local, and RFC1918 private
// targets so a submitted scan cannot be used to probe the host's own
// network from the outside.
func (v *Validator) rejectUnsafeTarget(parsed *url.URL) *interfaces.ValidationError {
	host := parsed.Hostname()
	lower := strings.ToLower(host)
	if lower == "localhost" {
		return &interfaces.ValidationError{Field: "url", Message: "localhost targets are not permitted"}
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// unresolvable host is the crawler's problem to report later, not
		// admission's place to guess at
		return nil
	}
	for _, ip := range ips {
		if isDisallowedIP(ip) {
			return &interfaces.ValidationError{Field: "url", Message: fmt.Sprintf("target resolves to a disallowed address range: %s", ip)}
		}
	}
	return nil
}

func isDisallowedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() || ip.IsUnspecified()
}

func (v *Validator) ValidateEmail(raw string) *interfaces.ValidationError {
	if raw == "" {
		return nil
	}
	if err := v.validate.Var(raw, "email"); err != nil {
		return &interfaces.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}
