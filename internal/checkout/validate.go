package checkout

import (
	"regexp"
	"strings"

	"storefront-gateway/internal/models"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reDigits = regexp.MustCompile(`^[0-9]+$`)
)

// ValidEmail checks a standard address pattern after trimming.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && len(s) <= 100 && reEmail.MatchString(s)
}

// NormalizePhone validates a phone entry and returns its stored form. The
// input must be exactly 10 digits; one leading "0" is stripped for storage
// (the upstream prepends the country code).
func NormalizePhone(s string) (string, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if len(s) != 10 || !reDigits.MatchString(s) {
		return "", false
	}
	return strings.TrimPrefix(s, "0"), true
}

// ValidateShipping checks the checkout form and returns the normalized copy
// (phones in stored form) plus field-level errors. When pickup is set the
// address fields are not required. No network call happens here.
func ValidateShipping(in models.ShippingInfo) (models.ShippingInfo, map[string]string) {
	errs := map[string]string{}
	out := in

	out.FullName = strings.TrimSpace(in.FullName)
	if out.FullName == "" {
		errs["fullName"] = "full name is required"
	}

	out.Email = strings.TrimSpace(in.Email)
	if out.Email == "" {
		errs["email"] = "email is required"
	} else if !ValidEmail(out.Email) {
		errs["email"] = "email address is invalid"
	}

	if strings.TrimSpace(in.Phone) == "" {
		errs["phone"] = "phone is required"
	} else if p, ok := NormalizePhone(in.Phone); ok {
		out.Phone = p
	} else {
		errs["phone"] = "phone must be exactly 10 digits"
	}

	out.Phone2 = ""
	if strings.TrimSpace(in.Phone2) != "" {
		if p, ok := NormalizePhone(in.Phone2); ok {
			out.Phone2 = p
		} else {
			errs["phone2"] = "phone must be exactly 10 digits"
		}
	}
	if out.Phone != "" && out.Phone2 != "" && out.Phone == out.Phone2 {
		errs["phone2"] = "the two phone numbers must differ"
	}

	if !in.Pickup {
		out.Address = strings.TrimSpace(in.Address)
		out.City = strings.TrimSpace(in.City)
		out.PostalCode = strings.TrimSpace(in.PostalCode)
		if out.Address == "" {
			errs["address"] = "address is required"
		}
		if out.City == "" {
			errs["city"] = "city is required"
		}
		if out.PostalCode == "" {
			errs["postalCode"] = "postal code is required"
		}
	}

	if len(errs) > 0 {
		return in, errs
	}
	return out, nil
}
