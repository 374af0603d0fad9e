package pipeline

import (
	"reflect"
	"testing"

	"github.com/hitoshi/harenews/internal/model"
)

func titlesOf(cs []model.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

func TestDedupeBatch_FirstOccurrenceWins(t *testing.T) {
	in := []model.Candidate{
		{Title: "Coral Reef Recovery Sets Record", SourceName: "A"},
		{Title: "Volunteers Clean Up Local Park", SourceName: "B"},
		{Title: "coral reef recovery sets record", SourceName: "C"}, // 大文字小文字違いの重複
	}

	out := DedupeBatch(in, 50)

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].SourceName != "A" {
		t.Errorf("survivor source = %q, want %q (first occurrence)", out[0].SourceName, "A")
	}
	if out[1].Title != "Volunteers Clean Up Local Park" {
		t.Errorf("order not preserved: %v", titlesOf(out))
	}
}

func TestDedupeBatch_PrefixTruncation(t *testing.T) {
	// 先頭10ルーンが一致すれば同一ストーリーとして扱う
	in := []model.Candidate{
		{Title: "Same prefix but different endings here"},
		{Title: "Same prefix and a completely other tail"},
	}

	out := DedupeBatch(in, 10)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}

	// prefix長より短いタイトルはタイトル全体がキーになる
	in = []model.Candidate{
		{Title: "Short"},
		{Title: "Short but longer"},
	}
	out = DedupeBatch(in, 50)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
}

func TestDedupeBatch_Idempotent(t *testing.T) {
	in := []model.Candidate{
		{Title: "Alpha story"},
		{Title: "alpha story"},
		{Title: "Beta story"},
		{Title: "Gamma story"},
		{Title: "Beta Story"},
	}

	once := DedupeBatch(in, 50)
	twice := DedupeBatch(once, 50)

	if !reflect.DeepEqual(titlesOf(once), titlesOf(twice)) {
		t.Errorf("dedupeBatch is not idempotent: %v != %v", titlesOf(once), titlesOf(twice))
	}
}

func TestDedupeBatch_EmptyInput(t *testing.T) {
	if out := DedupeBatch(nil, 50); len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}

func TestDedupeBatch_EmptyTitlesCollapse(t *testing.T) {
	// 空タイトル同士も同一キーとなり最初の1件だけが残る
	in := []model.Candidate{
		{Title: "", SourceName: "A"},
		{Title: "", SourceName: "B"},
	}
	out := DedupeBatch(in, 50)
	if len(out) != 1 || out[0].SourceName != "A" {
		t.Errorf("got %d survivors from %q, want 1 from A", len(out), out[0].SourceName)
	}
}
