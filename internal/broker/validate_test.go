package broker

import (
	"errors"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "simple", id: "orders", wantErr: false},
		{name: "full grammar", id: "orders-v2.prod_eu", wantErr: false},
		{name: "single char", id: "a", wantErr: false},
		{name: "empty", id: "", wantErr: true},
		{name: "space", id: "my topic", wantErr: true},
		{name: "slash", id: "a/b", wantErr: true},
		{name: "unicode", id: "tópico", wantErr: true},
		{name: "128 chars", id: string(make128()), wantErr: false},
		{name: "129 chars", id: string(make128()) + "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("id", tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateID(%q) error is not ErrValidation: %v", tt.id, err)
			}
		})
	}
}

func make128() []byte {
	b := make([]byte, 128)
	for i := range b {
		b[i] = 'a'
	}
	return b
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		limit   int
		wantErr bool
	}{
		{name: "defaults", offset: 0, limit: 10, wantErr: false},
		{name: "max limit", offset: 0, limit: 100, wantErr: false},
		{name: "limit too large", offset: 0, limit: 101, wantErr: true},
		{name: "zero limit", offset: 0, limit: 0, wantErr: true},
		{name: "negative offset", offset: -1, limit: 10, wantErr: true},
		{name: "large offset", offset: 100000, limit: 1, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePage(tt.offset, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePage(%d, %d) error = %v, wantErr %v", tt.offset, tt.limit, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBatchSize(t *testing.T) {
	for _, n := range []int{1, 10, 100} {
		if err := ValidateBatchSize(n); err != nil {
			t.Errorf("ValidateBatchSize(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{0, -1, 101} {
		if err := ValidateBatchSize(n); err == nil {
			t.Errorf("ValidateBatchSize(%d) = nil, want error", n)
		}
	}
}

func TestSanitizeFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  map[string]any
		wantErr bool
	}{
		{name: "nil accepts all", filter: nil, wantErr: false},
		{name: "empty accepts all", filter: map[string]any{}, wantErr: false},
		{name: "string values", filter: map[string]any{"country": []any{"BR", "US"}}, wantErr: false},
		{name: "mixed primitives", filter: map[string]any{"f": []any{float64(1), "a", true}}, wantErr: false},
		{name: "value not an array", filter: map[string]any{"f": "not_an_array"}, wantErr: true},
		{name: "object element", filter: map[string]any{"f": []any{map[string]any{"x": 1}}}, wantErr: true},
		{name: "array element", filter: map[string]any{"f": []any{[]any{"x"}}}, wantErr: true},
		{name: "null element", filter: map[string]any{"f": []any{nil}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeFilter(tt.filter)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeFilter(%v) error = %v, wantErr %v", tt.filter, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("SanitizeFilter(%v) error is not ErrValidation: %v", tt.filter, err)
			}
		})
	}
}

func TestSanitizeFilterEscapesStrings(t *testing.T) {
	filter := map[string]any{
		"field": []any{"<script>alert(1)</script>", "plain", "nul\x00byte"},
	}

	got, err := SanitizeFilter(filter)
	if err != nil {
		t.Fatalf("SanitizeFilter() error = %v", err)
	}

	values := got["field"].([]any)
	if values[0] == "<script>alert(1)</script>" {
		t.Error("script tags were not escaped")
	}
	if values[1] != "plain" {
		t.Errorf("plain string changed: %v", values[1])
	}
	if values[2] != "nulbyte" {
		t.Errorf("control character not stripped: %q", values[2])
	}
}

func TestValidateScopes(t *testing.T) {
	tests := []struct {
		name    string
		scopes  string
		wantErr bool
	}{
		{name: "wildcard", scopes: "*", wantErr: false},
		{name: "single", scopes: "topics:read", wantErr: false},
		{name: "multiple", scopes: "topics:read subscriptions:consume", wantErr: false},
		{name: "resource scoped", scopes: "subscriptions:consume:orders-sub", wantErr: false},
		{name: "empty", scopes: "", wantErr: true},
		{name: "whitespace only", scopes: "   ", wantErr: true},
		{name: "unknown resource", scopes: "widgets:read", wantErr: true},
		{name: "unknown action", scopes: "topics:destroy", wantErr: true},
		{name: "one bad among good", scopes: "topics:read bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScopes(tt.scopes)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateScopes(%q) error = %v, wantErr %v", tt.scopes, err, tt.wantErr)
			}
		})
	}
}
