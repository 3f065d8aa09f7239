package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestAutoModToggle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enabled, err := store.AutoModEnabled(ctx, "g1")
	if err != nil {
		t.Fatalf("automod enabled: %v", err)
	}
	if enabled {
		t.Fatalf("expected disabled by default")
	}

	if err := store.EnableAutoMod(ctx, "g1"); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if enabled, _ = store.AutoModEnabled(ctx, "g1"); !enabled {
		t.Fatalf("expected enabled")
	}

	if err := store.DisableAutoMod(ctx, "g1"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if enabled, _ = store.AutoModEnabled(ctx, "g1"); enabled {
		t.Fatalf("expected row deleted on disable")
	}
}

func TestAntiAltUpsertAndValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := AntiAltConfig{GuildID: "g1", Enabled: true, MinAgeDays: 14, RestrictedRole: "r1", Level: 2}
	if err := store.UpsertAntiAlt(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetAntiAlt(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Enabled || got.MinAgeDays != 14 || got.Level != 2 || got.RestrictedRole != "r1" {
		t.Fatalf("unexpected config: %+v", got)
	}

	cfg.Level = 4
	if err := store.UpsertAntiAlt(ctx, cfg); err == nil {
		t.Fatalf("expected level validation error")
	}
}

func TestWarningLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	t1 := time.Unix(1000, 0)
	t2 := time.Unix(2000, 0)

	if count, err := store.AddWarning(ctx, "g1", "u1", "spam", t1); err != nil || count != 1 {
		t.Fatalf("add first: count=%d err=%v", count, err)
	}
	if count, err := store.AddWarning(ctx, "g1", "u1", "flood", t2); err != nil || count != 2 {
		t.Fatalf("add second: count=%d err=%v", count, err)
	}

	removed, ok, err := store.RemoveWarning(ctx, "g1", "u1", 0)
	if err != nil || !ok {
		t.Fatalf("remove: ok=%t err=%v", ok, err)
	}
	if removed.Reason != "spam" || !removed.WarnedAt.Equal(t1) {
		t.Fatalf("removed wrong warning: %+v", removed)
	}

	warnings, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Reason != "flood" || !warnings[0].WarnedAt.Equal(t2) {
		t.Fatalf("unexpected remaining warnings: %+v", warnings)
	}

	// Renumbering keeps the survivor addressable at index 0.
	if _, ok, _ := store.RemoveWarning(ctx, "g1", "u1", 0); !ok {
		t.Fatalf("expected renumbered warning at index 0")
	}
	warnings, _ = store.ListWarnings(ctx, "g1", "u1")
	if len(warnings) != 0 {
		t.Fatalf("expected drained ledger, got %+v", warnings)
	}
}

func TestRemoveWarningMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.RemoveWarning(context.Background(), "g1", "u1", 0)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok {
		t.Fatalf("expected no-op for missing warning")
	}
}

func TestStarboardConfigAndMirrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertStarboard(ctx, StarboardConfig{GuildID: "g1", ChannelID: "c1", StarCount: 0}); err == nil {
		t.Fatalf("expected star count validation error")
	}
	if err := store.UpsertStarboard(ctx, StarboardConfig{GuildID: "g1", ChannelID: "c1", StarCount: 3, SelfStar: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cfg, err := store.GetStarboard(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.ChannelID != "c1" || cfg.StarCount != 3 || !cfg.SelfStar {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if err := store.SetMirror(ctx, "g1", "m1", "mirror1"); err != nil {
		t.Fatalf("set mirror: %v", err)
	}
	mirrorID, err := store.GetMirror(ctx, "g1", "m1")
	if err != nil || mirrorID != "mirror1" {
		t.Fatalf("get mirror: id=%q err=%v", mirrorID, err)
	}
	if err := store.DeleteMirror(ctx, "g1", "m1"); err != nil {
		t.Fatalf("delete mirror: %v", err)
	}
	if mirrorID, _ = store.GetMirror(ctx, "g1", "m1"); mirrorID != "" {
		t.Fatalf("expected mapping cleared, got %q", mirrorID)
	}
}

func TestGuildLogsModules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.GetGuildLogs(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.ChannelID != "" {
		t.Fatalf("expected unset config")
	}

	if err := store.UpsertGuildLogs(ctx, LogsConfig{GuildID: "g1", ChannelID: "c1", Modules: []string{"roles", "messages"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	cfg, _ = store.GetGuildLogs(ctx, "g1")
	if len(cfg.Modules) != 2 || cfg.Modules[0] != "roles" || cfg.Modules[1] != "messages" {
		t.Fatalf("unexpected modules: %v", cfg.Modules)
	}
}

func TestTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetTag(ctx, Tag{GuildID: "g1", Name: "Rules", Content: "be nice", AuthorID: "u1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	tag, ok, err := store.GetTag(ctx, "g1", "rules")
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if tag.Content != "be nice" {
		t.Fatalf("unexpected content %q", tag.Content)
	}
	if err := store.DeleteTag(ctx, "g1", "RULES"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ = store.GetTag(ctx, "g1", "rules"); ok {
		t.Fatalf("expected tag removed")
	}
}
