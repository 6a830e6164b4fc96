package deliver

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeNone, false},
		{"none", ModeNone, false},
		{"copy", ModeCopy, false},
		{"insert", ModeInsert, false},
		{"paste", ModeNone, true},
		{"Copy", ModeNone, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeliverNoops(t *testing.T) {
	if err := Deliver("", ModeInsert); err != nil {
		t.Errorf("empty text should be a no-op, got %v", err)
	}
	if err := Deliver("hello", ModeNone); err != nil {
		t.Errorf("ModeNone should be a no-op, got %v", err)
	}
}

func TestDeliverUnknownMode(t *testing.T) {
	if err := Deliver("hello", Mode("smoke-signal")); err == nil {
		t.Error("expected error for unknown mode")
	}
}
