package utils

import "testing"

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123456@josephscollege.ac.in", "123***@josephscollege.ac.in"},
		{"jdoe@josephscollege.ac.in", "jdo***@josephscollege.ac.in"},
		{"ab@josephscollege.ac.in", "ab***@josephscollege.ac.in"},
		{"no-at-sign", "no-at-sign"},
	}
	for _, tt := range tests {
		if got := MaskEmail(tt.in); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
