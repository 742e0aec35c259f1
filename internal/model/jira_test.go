package model

import "testing"

func TestExtractJiraID(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"[AB-12] fix login flow", "AB-12"},
		{"[AB-12] fix [CD-99] other", "AB-12"},
		{"no id here", ""},
		{"", ""},
		{"prefix [PROJ-4321] suffix", "PROJ-4321"},
		{"[not-a-key] something", ""},
		{"[AB12] missing dash", ""},
		{"trailing key [XY-7]", "XY-7"},
	}
	for _, tt := range tests {
		if got := ExtractJiraID(tt.title); got != tt.want {
			t.Errorf("ExtractJiraID(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestRevisionKey(t *testing.T) {
	a := Revision{Source: SourceGitLab, ID: 101}
	b := Revision{Source: SourceGitLab, ID: 101, Title: "different payload"}
	if a.Key() != b.Key() {
		t.Errorf("keys differ for same (source, id): %v vs %v", a.Key(), b.Key())
	}
	c := Revision{Source: SourcePhabricator, ID: 101}
	if a.Key() == c.Key() {
		t.Error("keys equal across sources; IDs are not comparable across sources")
	}
}

func TestParseSource(t *testing.T) {
	if s, ok := ParseSource("gitlab"); !ok || s != SourceGitLab {
		t.Errorf("ParseSource(gitlab) = %v, %v", s, ok)
	}
	if s, ok := ParseSource("phab"); !ok || s != SourcePhabricator {
		t.Errorf("ParseSource(phab) = %v, %v", s, ok)
	}
	if _, ok := ParseSource("github"); ok {
		t.Error("ParseSource(github) should not resolve")
	}
}

func TestCommentPositionLineNumber(t *testing.T) {
	if n := (CommentPosition{OldLine: 10}).LineNumber(); n != 10 {
		t.Errorf("LineNumber = %d, want 10", n)
	}
	if n := (CommentPosition{OldLine: 10, NewLine: 12}).LineNumber(); n != 12 {
		t.Errorf("LineNumber = %d, want 12 (new line preferred)", n)
	}
}
