package deck

import "testing"

func pets(ids ...string) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Name: "Pet " + id}
	}
	return out
}

func TestDeck_AtWrapsCyclically(t *testing.T) {
	d := New(pets("p0", "p1", "p2", "p3"))

	tests := []struct {
		index int
		want  string
	}{
		{0, "p0"},
		{3, "p3"},
		{4, "p0"},
		{9, "p1"},
		{-1, "p3"},
		{-5, "p3"},
	}

	for _, tt := range tests {
		got, ok := d.At(tt.index)
		if !ok {
			t.Fatalf("At(%d) reported empty deck", tt.index)
		}
		if got.ID != tt.want {
			t.Errorf("At(%d) = %s, want %s", tt.index, got.ID, tt.want)
		}
	}
}

func TestDeck_EmptyDeck(t *testing.T) {
	var d Deck
	if !d.Empty() || d.Size() != 0 {
		t.Fatalf("zero Deck should be empty, size=%d", d.Size())
	}
	if _, ok := d.At(0); ok {
		t.Error("At on empty deck should report false")
	}
	if d.Fingerprint() != "" {
		t.Errorf("empty deck fingerprint = %q, want empty", d.Fingerprint())
	}
}

func TestDeck_NewCopiesInput(t *testing.T) {
	in := pets("a", "b")
	d := New(in)
	in[0].ID = "mutated"

	got, _ := d.At(0)
	if got.ID != "a" {
		t.Errorf("deck observed caller mutation: %s", got.ID)
	}
}

func TestDeck_Fingerprint(t *testing.T) {
	a := New(pets("a", "b", "c"))
	b := New(pets("a", "b", "c"))
	c := New(pets("c", "b", "a"))

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical decks should share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("reordered deck should change the fingerprint")
	}
	if len(a.Fingerprint()) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a.Fingerprint()))
	}
}

func TestWrap(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{0, 0, 0},
		{5, 0, 0},
		{1, 1, 0},
		{5, 4, 1},
		{-1, 4, 3},
	}
	for _, tt := range tests {
		if got := Wrap(tt.i, tt.n); got != tt.want {
			t.Errorf("Wrap(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}
