package match

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Cristiano Ronaldo", "cristiano ronaldo"},
		{"KYLIAN MBAPPÉ", "kylian mbappe"},
		{"Zlatan Ibrahimović", "zlatan ibrahimovic"},
		{"Müller", "muller"},
		{"São Paulo", "sao paulo"},
		{"  N'Golo   Kanté  ", "n'golo kante"},
		{"\tLionel\nMessi", "lionel messi"},
		{"", ""},
		{"   ", ""},
		{"pele", "pele"},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got.Text != tt.want {
			t.Errorf("Normalize(%q).Text = %q, want %q", tt.input, got.Text, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Cristiano Ronaldo",
		"KYLIAN MBAPPÉ",
		"  Zlatan   Ibrahimović ",
		"Ñíguez",
		"",
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once.Text)
		if once.Text != twice.Text {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once.Text, twice.Text)
		}
	}
}

func TestNormalizeTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Kylian Mbappé Lottin", []string{"kylian", "mbappe", "lottin"}},
		{"Ronaldinho", []string{"ronaldinho"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if !reflect.DeepEqual(got.Tokens, tt.want) {
			t.Errorf("Normalize(%q).Tokens = %v, want %v", tt.input, got.Tokens, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	text, tokens := NormalizeName("Luka Modrić")
	if text != "luka modric" {
		t.Errorf("text = %q, want %q", text, "luka modric")
	}
	if len(tokens) != 2 || tokens[0] != "luka" || tokens[1] != "modric" {
		t.Errorf("tokens = %v, want [luka modric]", tokens)
	}
}
