// Package billing builds Creem checkout redirects. Payment state itself
// lives with Creem; nothing flows back into the auth layer.
package billing

import (
	"net/url"
	"strings"
)

// Checkout builds deterministic checkout URLs.
type Checkout struct {
	// Base is the Creem payment origin, e.g. https://www.creem.io/payment.
	Base string
	// SuccessURL is where Creem sends the customer afterwards.
	SuccessURL string
}

// URL builds the external checkout URL for a price and customer.
// Deterministic: same inputs, same URL.
func (c *Checkout) URL(priceID, customerEmail string) string {
	base := strings.TrimRight(c.Base, "/")
	u, err := url.Parse(base + "/" + url.PathEscape(priceID))
	if err != nil {
		return base
	}
	q := u.Query()
	if customerEmail != "" {
		q.Set("customer_email", customerEmail)
	}
	if c.SuccessURL != "" {
		q.Set("success_url", c.SuccessURL)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
