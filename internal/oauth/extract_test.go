package oauth

import "testing"

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode string
		wantOK   bool
	}{
		{name: "request line stops at ampersand", target: "GET /?code=ABC123&state=xyz HTTP/1.1", wantCode: "ABC123", wantOK: true},
		{name: "request uri", target: "/?code=ABC123", wantCode: "ABC123", wantOK: true},
		{name: "code after other params", target: "/?state=xyz&code=4%2F0Ab", wantCode: "4%2F0Ab", wantOK: true},
		{name: "fragment ends value", target: "/?code=abc#frag", wantCode: "abc", wantOK: true},
		{name: "no query string", target: "GET / HTTP/1.1", wantOK: false},
		{name: "query without code", target: "/?error=access_denied", wantOK: false},
		{name: "empty code", target: "/?code=&state=x", wantOK: false},
		{name: "similar key", target: "/?xcode=abc", wantOK: false},
		{name: "case sensitive", target: "/?CODE=abc", wantOK: false},
		{name: "empty", target: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ExtractCode(tt.target)
			if ok != tt.wantOK {
				t.Fatalf("ExtractCode(%q) ok = %v, want %v", tt.target, ok, tt.wantOK)
			}
			if code != tt.wantCode {
				t.Errorf("ExtractCode(%q) = %q, want %q", tt.target, code, tt.wantCode)
			}
		})
	}
}
