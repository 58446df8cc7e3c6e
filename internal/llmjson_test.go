package internal

import (
	"strings"
	"testing"
)

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"tone":"calm"}`, "calm", false},
		{"fenced", "```json\n{\"tone\":\"urgent\"}\n```", "urgent", false},
		{"bare fence", "```\n{\"tone\":\"dry\"}\n```", "dry", false},
		{"prose around", "Here is the analysis:\n{\"tone\":\"warm\"}\nLet me know!", "warm", false},
		{"empty", "   ", "", true},
		{"no json", "I cannot analyze this video.", "", true},
		{"broken", "```json\n{\"tone\": \n```", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Tone string `json:"tone"`
			}
			err := DecodeLLMJSON(tt.content, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Tone != tt.want {
				t.Errorf("tone = %q, want %q", got.Tone, tt.want)
			}
		})
	}
}

func TestDecodeLLMJSONErrorIncludesSnippet(t *testing.T) {
	var v map[string]any
	err := DecodeLLMJSON("sorry,\n\n   no   json here", &v)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "sorry, no json here") {
		t.Errorf("error %q does not carry a flattened snippet", err)
	}
}

func TestPayloadSnippetTruncates(t *testing.T) {
	got := payloadSnippet(strings.Repeat("x", 500))
	if len(got) != 163 || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet length = %d", len(got))
	}
}
