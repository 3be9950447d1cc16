package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePastedCode(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantCode string
		wantOK   bool
	}{
		{name: "redirect URL", line: "http://127.0.0.1:53682/?code=4/0AbC&scope=x", wantCode: "4/0AbC", wantOK: true},
		{name: "query only", line: "?code=abc", wantCode: "abc", wantOK: true},
		{name: "bare code", line: "  4/0AbCdEf  \n", wantCode: "4/0AbCdEf", wantOK: true},
		{name: "URL without code", line: "http://127.0.0.1:53682/?error=access_denied", wantOK: false},
		{name: "empty", line: "   ", wantOK: false},
		{name: "sentence", line: "not a code", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := parsePastedCode(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCode, code)
			}
		})
	}
}
