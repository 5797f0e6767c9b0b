package checkout

import (
	"testing"

	"storefront-gateway/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0712345678", "712345678", true},
		{"071 234 5678", "712345678", true},
		{"9812345670", "9812345670", true},
		{"00712345678", "", false}, // 11 digits
		{"071234567", "", false},   // 9 digits
		{"07123456a8", "", false},
		{"", "", false},
		{"+30712345678", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestValidEmail(t *testing.T) {
	for _, s := range []string{"a@b.com", "first.last+tag@sub.example.org", " padded@ok.io "} {
		if !ValidEmail(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "no-at.com", "a@b", "a b@c.com"} {
		if ValidEmail(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func validForm() models.ShippingInfo {
	return models.ShippingInfo{
		FullName:   "Maria Papadopoulou",
		Address:    "12 Harbor St",
		City:       "Athens",
		PostalCode: "11527",
		Phone:      "0712345678",
		Email:      "maria@example.com",
	}
}

func TestValidateShippingHappyPath(t *testing.T) {
	out, errs := ValidateShipping(validForm())
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if out.Phone != "712345678" {
		t.Fatalf("phone stored as %q, want leading zero stripped", out.Phone)
	}
}

func TestValidateShippingRequiredFields(t *testing.T) {
	_, errs := ValidateShipping(models.ShippingInfo{})
	for _, field := range []string{"fullName", "email", "phone", "address", "city", "postalCode"} {
		if errs[field] == "" {
			t.Fatalf("missing error for %q, got %v", field, errs)
		}
	}
}

func TestValidateShippingPickupRelaxesAddress(t *testing.T) {
	in := validForm()
	in.Address, in.City, in.PostalCode = "", "", ""
	in.Pickup = true
	if _, errs := ValidateShipping(in); errs != nil {
		t.Fatalf("pickup should not require an address, got %v", errs)
	}

	in.Pickup = false
	if _, errs := ValidateShipping(in); errs["address"] == "" {
		t.Fatalf("delivery requires an address, got %v", errs)
	}
}

func TestValidateShippingSecondPhone(t *testing.T) {
	in := validForm()
	in.Phone2 = "0798765432"
	out, errs := ValidateShipping(in)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if out.Phone2 != "798765432" {
		t.Fatalf("phone2 stored as %q", out.Phone2)
	}

	in.Phone2 = in.Phone
	if _, errs := ValidateShipping(in); errs["phone2"] == "" {
		t.Fatal("identical phones must be rejected")
	}

	in.Phone2 = "123"
	if _, errs := ValidateShipping(in); errs["phone2"] == "" {
		t.Fatal("short second phone must be rejected")
	}
}
