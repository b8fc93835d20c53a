package billing

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckout_URL(t *testing.T) {
	c := &Checkout{Base: "https://www.creem.io/payment/", SuccessURL: "https://app.test/billing/done"}

	raw := c.URL("prod_pro_monthly", "writer@example.com")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "www.creem.io", u.Host)
	require.Equal(t, "/payment/prod_pro_monthly", u.Path)

	q := u.Query()
	require.Equal(t, "writer@example.com", q.Get("customer_email"))
	require.Equal(t, "https://app.test/billing/done", q.Get("success_url"))

	// Deterministic: same inputs, same URL.
	require.Equal(t, raw, c.URL("prod_pro_monthly", "writer@example.com"))
}

func TestCheckout_URLWithoutEmail(t *testing.T) {
	c := &Checkout{Base: "https://www.creem.io/payment"}
	u, err := url.Parse(c.URL("prod_x", ""))
	require.NoError(t, err)
	require.NotContains(t, u.Query(), "customer_email")
	require.NotContains(t, u.Query(), "success_url")
}

func TestCheckout_EscapesPriceID(t *testing.T) {
	c := &Checkout{Base: "https://www.creem.io/payment"}
	u, err := url.Parse(c.URL("weird/id value", ""))
	require.NoError(t, err)
	require.Equal(t, "www.creem.io", u.Host)
}
