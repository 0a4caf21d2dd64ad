package orgtree

import "testing"

func TestParseTwoLevels(t *testing.T) {
	tree := Parse("1|7|Company¤2|21|Dept")
	if tree.Size() != 2 {
		t.Fatalf("expected 2 levels, got %d", tree.Size())
	}
	root, ok := tree.Root()
	if !ok || root.Level != 1 || root.OrgID != "7" || root.OrgName != "Company" {
		t.Fatalf("unexpected root: %+v", root)
	}
	dept, ok := tree.At(2)
	if !ok || dept.OrgID != "21" || dept.OrgName != "Dept" {
		t.Fatalf("unexpected level 2: %+v", dept)
	}
}

func TestParseSkipsMalformedSegments(t *testing.T) {
	tree := Parse("1|7|Company¤x|8|Broken¤3|9|Leaf")
	if tree.Size() != 2 {
		t.Fatalf("expected malformed segment skipped, got %d levels", tree.Size())
	}
	if _, ok := tree.At(3); !ok {
		t.Fatalf("expected level 3 kept")
	}
}

func TestParseSkipsWrongFieldCount(t *testing.T) {
	tree := Parse("1|7¤2|21|Dept|extra¤4|40|Unit")
	if tree.Size() != 1 {
		t.Fatalf("expected only the well-formed segment, got %d", tree.Size())
	}
	if _, ok := tree.At(4); !ok {
		t.Fatalf("expected level 4 kept")
	}
}

func TestParseEmpty(t *testing.T) {
	tree := Parse("")
	if tree.Size() != 0 {
		t.Fatalf("expected empty tree, got %d", tree.Size())
	}
	if _, ok := tree.Root(); ok {
		t.Fatalf("expected no root")
	}
}

func TestLevelsOrderedAscending(t *testing.T) {
	tree := Parse("3|30|Unit¤1|10|Company¤2|20|Dept")
	levels := tree.Levels()
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	for i, want := range []int{1, 2, 3} {
		if levels[i].Level != want {
			t.Fatalf("expected level %d at index %d, got %d", want, i, levels[i].Level)
		}
	}
}
