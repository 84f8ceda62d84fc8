package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONStrict(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"x"}`, false},
		{"unknown field", `{"name":"x","extra":1}`, true},
		{"trailing garbage", `{"name":"x"} {"name":"y"}`, true},
		{"not json", `name=x`, true},
		{"empty body", ``, true},
		{"wrong type", `{"name":42}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(r, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeJSON(%q) err = %v, wantErr %v", tt.body, err, tt.wantErr)
			}
		})
	}
}

func TestQueryIntPtr(t *testing.T) {
	r := httptest.NewRequest("GET", "/?min_price=500&bad=abc", nil)
	if got := queryIntPtr(r, "min_price"); got == nil || *got != 500 {
		t.Errorf("min_price = %v, want 500", got)
	}
	if got := queryIntPtr(r, "bad"); got != nil {
		t.Errorf("non-numeric value = %v, want nil", got)
	}
	if got := queryIntPtr(r, "missing"); got != nil {
		t.Errorf("missing key = %v, want nil", got)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, 404, "not found")
	if w.Code != 404 {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"error":"not found"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}
