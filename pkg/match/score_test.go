package match

import (
	"testing"

	"github.com/mezzala/gaffer/pkg/roster"
)

func testPlayer(id int64, name string) roster.Player {
	normalized, tokens := NormalizeName(name)
	return roster.Player{
		ID:         id,
		Name:       name,
		Normalized: normalized,
		Tokens:     tokens,
		Mononym:    len(tokens) == 1,
	}
}

func TestEditThreshold(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		length, want int
	}{
		{1, 0},
		{4, 0},
		{5, 1},
		{8, 1},
		{9, 2},
		{15, 2},
	}
	for _, tt := range tests {
		if got := cfg.editThreshold(tt.length); got != tt.want {
			t.Errorf("editThreshold(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestScoreLengthRatioGuard(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}

	// 7 letters against 10: ratio 0.7 is under the 0.8 floor, so the guard
	// rejects no matter how close the edit distance looks.
	_, ok := sc.score(Normalize("ronaldo"), testPlayer(1, "Ronaldinho"))
	if ok {
		t.Error("\"ronaldo\" should not qualify against \"Ronaldinho\"")
	}
}

func TestScoreClosestUnitIsFullName(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}

	// The full normalized name is one edit away while every individual
	// token is far; the comparison unit must be the full name so the
	// candidate passes the ratio guard.
	c, ok := sc.score(Normalize("christiano ronaldo"), testPlayer(1, "Cristiano Ronaldo"))
	if !ok {
		t.Fatal("\"christiano ronaldo\" should qualify against \"Cristiano Ronaldo\"")
	}
	if c.Distance != 1 {
		t.Errorf("distance = %d, want 1", c.Distance)
	}
}

func TestScoreClosestUnitIsToken(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}

	c, ok := sc.score(Normalize("ronaldihno"), testPlayer(1, "Ronaldinho"))
	if !ok {
		t.Fatal("\"ronaldihno\" should qualify against \"Ronaldinho\"")
	}
	if c.Distance != 2 {
		t.Errorf("distance = %d, want 2 (transposed pair)", c.Distance)
	}
}

func TestScorePhoneticSlack(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}

	// "mesi" is 4 letters so the plain threshold is 0, but the phonetic
	// codes agree and the slack allows distance 1.
	c, ok := sc.score(Normalize("mesi"), testPlayer(1, "Messi"))
	if !ok {
		t.Fatal("\"mesi\" should qualify against \"Messi\" via phonetic slack")
	}
	if !c.Phonetic {
		t.Error("expected phonetic match to be flagged")
	}
	if c.Distance != 1 {
		t.Errorf("distance = %d, want 1", c.Distance)
	}
}

func TestScoreRejectsBeyondSlack(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}

	// Ratio 4/5 passes, but distance 3 exceeds threshold 0 plus slack 1 and
	// the phonetic codes disagree.
	if _, ok := sc.score(Normalize("salah"), testPlayer(1, "Sane")); ok {
		t.Error("\"salah\" should not qualify against \"Sane\"")
	}
}

func TestScoreFirstTokenBias(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}
	q := Normalize("silva")

	lead, ok := sc.score(q, testPlayer(1, "Silva Costa"))
	if !ok {
		t.Fatal("lead-token candidate should qualify")
	}
	trail, ok := sc.score(q, testPlayer(2, "Costa Silva"))
	if !ok {
		t.Fatal("trailing-token candidate should qualify")
	}
	if lead.Score >= trail.Score {
		t.Errorf("lead score %.2f should beat trailing score %.2f", lead.Score, trail.Score)
	}
}

func TestScoreSuffixBonus(t *testing.T) {
	sc := scorer{cfg: DefaultConfig()}

	// Same distance, same length; only the matching 3-char suffix separates
	// the two candidates.
	q := Normalize("haaland")
	withSuffix, ok1 := sc.score(q, testPlayer(1, "Hagland"))
	without, ok2 := sc.score(q, testPlayer(2, "Haalanc"))
	if !ok1 || !ok2 {
		t.Fatalf("both candidates should qualify (ok1=%v ok2=%v)", ok1, ok2)
	}
	if withSuffix.Score >= without.Score {
		t.Errorf("suffix-matching score %.2f should beat %.2f", withSuffix.Score, without.Score)
	}
}

func TestPhoneticMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"mesi", "messi", true},
		{"smith", "smyth", true},
		{"salah", "sane", false},
		{"", "messi", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := phoneticMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("phoneticMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
