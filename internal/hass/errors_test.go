package hass

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestErrorCode_Category(t *testing.T) {
	tests := []struct {
		raw  string
		want ErrorCategory
	}{
		{`1`, CategoryStaleIdentifier},
		{`"id_reuse"`, CategoryStaleIdentifier},
		{`2`, CategoryMalformed},
		{`"invalid_format"`, CategoryMalformed},
		{`3`, CategoryNotFound},
		{`"not_found"`, CategoryNotFound},
		{`42`, CategoryUnknown},
		{`"home_assistant_error"`, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var code ErrorCode
			if err := json.Unmarshal([]byte(tt.raw), &code); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if got := code.Category(); got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorCode_RejectsObjects(t *testing.T) {
	var code ErrorCode
	if err := json.Unmarshal([]byte(`{"a":1}`), &code); err == nil {
		t.Error("expected error for object code")
	}
}

func TestProtocolError_Error(t *testing.T) {
	err := newProtocolError(7, &ErrorInfo{Code: "3", Message: "Node 9 not found"})
	msg := err.Error()

	for _, want := range []string{"message #7", "Requested item cannot be found", "[#3]", "Node 9 not found"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	bare := newProtocolError(4, nil)
	if bare.Category != CategoryUnknown {
		t.Errorf("Category = %q, want unknown", bare.Category)
	}
	if !strings.Contains(bare.Error(), "unknown reason") {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestErrorCategory_Description(t *testing.T) {
	if ErrorCategory("bogus").Description() != CategoryUnknown.Description() {
		t.Error("unrecognised category should describe as unknown")
	}
}
