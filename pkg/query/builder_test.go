package query

import (
	"reflect"
	"testing"
)

func TestCompileEmptyFilterMatchesAll(t *testing.T) {
	p := Compile("", nil)
	if !p.Empty() {
		t.Fatal("expected empty predicate")
	}
	if p.Where() != "" {
		t.Errorf("expected empty WHERE clause, got %q", p.Where())
	}
	if len(p.Args()) != 0 {
		t.Errorf("expected no args, got %v", p.Args())
	}
}

func TestCompilePhraseOnly(t *testing.T) {
	p := Compile("can can", nil)
	want := "WHERE r.rowid IN (SELECT rowid FROM records_fts WHERE records_fts MATCH ?)"
	if p.Where() != want {
		t.Errorf("got %q, want %q", p.Where(), want)
	}
	args := p.Args()
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %v", args)
	}
	if args[0] != `{transcript pos_tags} : "can can"` {
		t.Errorf("unexpected match expression: %v", args[0])
	}
}

func TestCompilePlaylistsOnly(t *testing.T) {
	p := Compile("", []string{"b", "a"})
	want := "WHERE r.playlist IN (?, ?)"
	if p.Where() != want {
		t.Errorf("got %q, want %q", p.Where(), want)
	}
	// Values are sorted so equal sets compile identically.
	if !reflect.DeepEqual(p.Args(), []any{"a", "b"}) {
		t.Errorf("unexpected args: %v", p.Args())
	}
}

func TestCompileConditionsAreConjoined(t *testing.T) {
	p := Compile("hello", []string{"calls"})
	want := "WHERE r.rowid IN (SELECT rowid FROM records_fts WHERE records_fts MATCH ?) AND r.playlist IN (?)"
	if p.Where() != want {
		t.Errorf("got %q, want %q", p.Where(), want)
	}
	if len(p.Args()) != 2 {
		t.Errorf("expected 2 args, got %v", p.Args())
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	a := Compile("a phrase", []string{"x", "y"})
	b := Compile("a phrase", []string{"y", "x"})
	if a.Where() != b.Where() || !reflect.DeepEqual(a.Args(), b.Args()) {
		t.Errorf("equal filters compiled differently: %q %v vs %q %v",
			a.Where(), a.Args(), b.Where(), b.Args())
	}
}

func TestNormalizePhrase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`  hello world  `, "hello world"},
		{`"quoted"`, "quoted"},
		{`“smart quotes”`, "smart quotes"},
		{`‘single smart’`, "single smart"},
		{`'straight single'`, "straight single"},
		{"many   internal\tspaces", "many internal spaces"},
		{`   `, ""},
		{`""`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhrase(tt.in); got != tt.want {
			t.Errorf("NormalizePhrase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteOnlyPhraseAddsNoCondition(t *testing.T) {
	p := Compile(`""`, nil)
	if !p.Empty() {
		t.Errorf("expected no conditions for quote-only phrase, got %q", p.Where())
	}
}

func TestPhraseInternalQuotesEscaped(t *testing.T) {
	p := Compile(`say "cheese" now`, nil)
	args := p.Args()
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %v", args)
	}
	if args[0] != `{transcript pos_tags} : "say ""cheese"" now"` {
		t.Errorf("unexpected match expression: %v", args[0])
	}
}

func TestPredicateArgsAreCopied(t *testing.T) {
	p := Compile("x", nil)
	args := p.Args()
	args[0] = "mutated"
	if p.Args()[0] == "mutated" {
		t.Error("Args returned internal slice")
	}
}
