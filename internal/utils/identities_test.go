package utils

import (
	"testing"

	"github.com/ollkyy/scoutbot/internal/models"
)

func TestParseIdentityList(t *testing.T) {
	cases := []struct {
		in   string
		want []models.Identity
	}{
		{"", nil},
		{"123", []models.Identity{123}},
		{"1, 2,3", []models.Identity{1, 2, 3}},
		{"1,,2", []models.Identity{1, 2}},
		{"1,abc,2", []models.Identity{1, 2}},
	}
	for _, tc := range cases {
		got := ParseIdentityList(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("ParseIdentityList(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("ParseIdentityList(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}
