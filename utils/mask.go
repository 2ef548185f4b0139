package utils

import "strings"

// MaskEmail hides most of the local part of an address, keeping the
// first three characters and the domain, e.g. "123456@x.ac.in" becomes
// "123***@x.ac.in". Used when confirming where an OTP was sent without
// disclosing the full address.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	domain := email[at:]
	if len(local) <= 3 {
		return local + "***" + domain
	}
	return local[:3] + "***" + domain
}
