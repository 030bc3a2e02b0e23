package config

import (
	"testing"
)

func TestParseAllowedUsers(t *testing.T) {
	tests := []struct {
		input string
		want  []int64
	}{
		{"", []int64{}},
		{"123", []int64{123}},
		{"123,456", []int64{123, 456}},
		{" 123 , 456 ", []int64{123, 456}},
		{"123,abc,456", []int64{123, 456}},
		{",,", []int64{}},
	}

	for _, tt := range tests {
		got := ParseAllowedUsers(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("ParseAllowedUsers(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("ParseAllowedUsers(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestAuthorized(t *testing.T) {
	open := &Config{}
	if !open.Authorized(42) {
		t.Error("empty allowlist should admit everyone")
	}

	restricted := &Config{AllowedUsers: []int64{1, 2}}
	if !restricted.Authorized(1) {
		t.Error("listed user should be admitted")
	}
	if restricted.Authorized(3) {
		t.Error("unlisted user should be rejected")
	}
}

func TestParseConfirmMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ConfirmMode
		wantErr bool
	}{
		{"prompt", ConfirmModePrompt, false},
		{"approve", ConfirmModeApprove, false},
		{"decline", ConfirmModeDecline, false},
		{"bogus", ConfirmMode(""), true},
	}

	for _, tt := range tests {
		got, err := ParseConfirmMode(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseConfirmMode(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseConfirmMode(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
		}
	}
}

func TestParseIngestMode(t *testing.T) {
	if mode, err := ParseIngestMode("poll"); err != nil || mode != IngestModePoll {
		t.Errorf("ParseIngestMode(poll) = %v, %v", mode, err)
	}
	if mode, err := ParseIngestMode("push"); err != nil || mode != IngestModePush {
		t.Errorf("ParseIngestMode(push) = %v, %v", mode, err)
	}
	if _, err := ParseIngestMode("webhook"); err == nil {
		t.Error("unknown ingest mode should error")
	}
}
