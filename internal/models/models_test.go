package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestBaseModelBeforeCreateKeepsExistingID(t *testing.T) {
	base := BaseModel{ID: "fixed"}
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID != "fixed" {
		t.Fatalf("expected ID to be preserved, got %q", base.ID)
	}
}

func TestTableNames(t *testing.T) {
	if got := (ChatRoom{}).TableName(); got != "chat_rooms" {
		t.Fatalf("unexpected room table %q", got)
	}
	if got := (ChatMessage{}).TableName(); got != "chat_messages" {
		t.Fatalf("unexpected message table %q", got)
	}
	if got := (CacheEntry{}).TableName(); got != "cache_entries" {
		t.Fatalf("unexpected cache table %q", got)
	}
}
