package auth

import "testing"

func TestParseCallbackQuery_PlainURL(t *testing.T) {
	p := ParseCallbackQuery("/auth/callback?code=ABC123&state=xyz")
	if p.Code != "ABC123" {
		t.Fatalf("code: got %q want %q", p.Code, "ABC123")
	}
	if p.State != "xyz" {
		t.Fatalf("state: got %q want %q", p.State, "xyz")
	}
}

func TestParseCallbackQuery_SemicolonJoinedRedirects(t *testing.T) {
	// Authing consoles with several allowed callback URLs have been seen
	// echoing them all back, joined into one URI. Only the part after the
	// last '?' is the real query string.
	raw := "/auth/callback;https://other.example/cb;https://third.example/cb?code=REAL&state=st1"
	p := ParseCallbackQuery(raw)
	if p.Code != "REAL" {
		t.Fatalf("code: got %q want %q", p.Code, "REAL")
	}
	if p.State != "st1" {
		t.Fatalf("state: got %q want %q", p.State, "st1")
	}
}

func TestParseCallbackQuery_MultipleQuestionMarks(t *testing.T) {
	raw := "/auth/callback?junk=1;https://other.example/cb?code=REAL&state=st2"
	p := ParseCallbackQuery(raw)
	if p.Code != "REAL" || p.State != "st2" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseCallbackQuery_BareQueryString(t *testing.T) {
	p := ParseCallbackQuery("code=c&state=s")
	if p.Code != "c" || p.State != "s" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseCallbackQuery_ProviderError(t *testing.T) {
	p := ParseCallbackQuery("/auth/callback?error=access_denied&error_description=user+cancelled")
	if p.Code != "" {
		t.Fatalf("expected empty code, got %q", p.Code)
	}
	if p.Error != "access_denied" {
		t.Fatalf("error: got %q", p.Error)
	}
	if p.ErrorDescription != "user cancelled" {
		t.Fatalf("error_description: got %q", p.ErrorDescription)
	}
}

func TestParseCallbackQuery_Malformed(t *testing.T) {
	p := ParseCallbackQuery("?code=%zz")
	if p.Code != "" || p.State != "" {
		t.Fatalf("malformed query should yield empty params, got %+v", p)
	}
}

func TestParseCallbackQuery_TrimsWhitespace(t *testing.T) {
	p := ParseCallbackQuery("?code=+ABC+&state=+s+")
	if p.Code != "ABC" || p.State != "s" {
		t.Fatalf("got %+v", p)
	}
}
