package duration

import (
	"testing"
	"time"
)

func TestLookback(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"15m", 15 * time.Minute, false},
		{"1h", time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"2weeks", 14 * 24 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"1mo", 30 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"0d", 0, false},
		{"-1d", 0, true},
		{"3fortnights", 0, true},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Lookback(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Lookback(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookback(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Lookback(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	got, err := Since("1w", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Since() = %v, want %v", got, want)
	}

	if _, err := Since("soon", now); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("1h")
	if err != nil {
		t.Fatal(err)
	}
	if age := time.Since(got); age < time.Hour-time.Second || age > time.Hour+time.Second {
		t.Errorf("expected age ~1h, got %v", age)
	}
}
