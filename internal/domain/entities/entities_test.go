package entities

import (
	"testing"
)

func TestKnowledgeBase_PreservesOrder(t *testing.T) {
	kb := NewKnowledgeBase("test", []Entry{
		{ID: "B", Keywords: []string{"b"}, Priority: 1},
		{ID: "A", Keywords: []string{"a"}, Priority: 1},
	})

	if kb.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", kb.Len())
	}
	entries := kb.Entries()
	if entries[0].ID != "B" || entries[1].ID != "A" {
		t.Error("entries should keep load order")
	}
}

func TestKnowledgeBase_IsImmutable(t *testing.T) {
	src := []Entry{{ID: "GREET", Keywords: []string{"hello"}, Priority: 5}}
	kb := NewKnowledgeBase("test", src)

	src[0].Keywords[0] = "changed"
	src[0].ID = "OTHER"

	got, ok := kb.Lookup("GREET")
	if !ok {
		t.Fatal("GREET should still be present")
	}
	if got.Keywords[0] != "hello" {
		t.Errorf("source mutation leaked into knowledge base: %v", got.Keywords)
	}

	entries := kb.Entries()
	entries[0].Keywords[0] = "mutated"
	if kb.Entries()[0].Keywords[0] != "hello" {
		t.Error("Entries() should return copies")
	}
}

func TestKnowledgeBase_LookupDuplicateIDReturnsFirst(t *testing.T) {
	kb := NewKnowledgeBase("test", []Entry{
		{ID: "X", Response: "first"},
		{ID: "X", Response: "second"},
	})

	got, _ := kb.Lookup("X")
	if got.Response != "first" {
		t.Errorf("expected first entry, got %q", got.Response)
	}
}

func TestKnowledgeBase_NilSafe(t *testing.T) {
	var kb *KnowledgeBase
	if kb.Len() != 0 {
		t.Error("nil knowledge base should be empty")
	}
	if _, ok := kb.Lookup(DefaultFallbackID); ok {
		t.Error("nil knowledge base should not find anything")
	}
	if kb.Entries() != nil {
		t.Error("nil knowledge base should have no entries")
	}
	if !kb.LoadedAt().IsZero() {
		t.Error("nil knowledge base should have no load time")
	}
}

func TestEmptyKnowledgeBase(t *testing.T) {
	kb := EmptyKnowledgeBase("broken.yaml")
	if kb.Len() != 0 {
		t.Errorf("expected empty, got %d", kb.Len())
	}
	if kb.Source() != "broken.yaml" {
		t.Errorf("unexpected source: %s", kb.Source())
	}
	if kb.LoadedAt().IsZero() {
		t.Error("load time should be set")
	}
}

func TestDisplayEvent_Roles(t *testing.T) {
	user := DisplayEvent{Role: RoleUser, Text: "Hello!"}
	bot := DisplayEvent{Role: RoleBot, Text: "Hi there!", Index: 0, Total: 2}

	if user.Role != "user" || bot.Role != "bot" {
		t.Error("roles not set correctly")
	}
}
