package auth

import (
	"net/url"
	"strings"
)

// CallbackParams are the values extracted from a callback request URL.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallbackQuery extracts code/state from a callback URL or query
// string.
//
// Production Authing consoles with several comma- or semicolon-separated
// allowed redirect URIs have been observed echoing them all back joined
// into the callback URL, e.g.
//
//	/auth/callback;https://other.example/callback;...?code=ABC&state=XYZ
//
// Only the substring after the final '?' is the real query string, so that
// is all we parse. Input without a '?' is treated as a bare query string.
func ParseCallbackQuery(raw string) CallbackParams {
	if i := strings.LastIndex(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return CallbackParams{}
	}
	return CallbackParams{
		Code:             strings.TrimSpace(vals.Get("code")),
		State:            strings.TrimSpace(vals.Get("state")),
		Error:            strings.TrimSpace(vals.Get("error")),
		ErrorDescription: strings.TrimSpace(vals.Get("error_description")),
	}
}
