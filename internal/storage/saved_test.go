package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestCreateSaved_DefaultsAndRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	u := newTestUser(t, store, "saved@example.com")
	ctx := context.Background()

	c := &SavedCommand{
		UserID:      u.ID,
		Title:       "list ports",
		Text:        "lsof -i -P -n",
		Description: "show listening ports",
		Platform:    "linux,macos",
		Tags:        []string{"network", "debug"},
	}
	if err := store.CreateSaved(ctx, c); err != nil {
		t.Fatalf("CreateSaved() error = %v", err)
	}
	if c.ID == "" {
		t.Fatal("ID not assigned")
	}

	got, err := store.GetSaved(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetSaved() error = %v", err)
	}
	if got.Visibility != VisibilityPrivate {
		t.Errorf("Visibility = %q, want PRIVATE default", got.Visibility)
	}
	if got.Text != "lsof -i -P -n" {
		t.Errorf("Text = %q", got.Text)
	}

	sort.Strings(got.Tags)
	if len(got.Tags) != 2 || got.Tags[0] != "debug" || got.Tags[1] != "network" {
		t.Errorf("Tags = %v, want [debug network]", got.Tags)
	}
}

func TestCreateSaved_InvalidVisibility(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	u := newTestUser(t, store, "vis@example.com")

	c := &SavedCommand{UserID: u.ID, Text: "ls", Visibility: "SHARED"}
	if err := store.CreateSaved(context.Background(), c); err == nil {
		t.Error("CreateSaved() with invalid visibility succeeded, want error")
	}
}

func TestUpdateSaved_ReplacesTagsAndFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	u := newTestUser(t, store, "upd@example.com")
	ctx := context.Background()

	c := &SavedCommand{UserID: u.ID, Text: "df -h", Tags: []string{"disk"}}
	if err := store.CreateSaved(ctx, c); err != nil {
		t.Fatalf("CreateSaved() error = %v", err)
	}

	c.Title = "disk usage"
	c.Visibility = VisibilityPublic
	c.Favorite = true
	c.Tags = []string{"storage"}
	if err := store.UpdateSaved(ctx, c); err != nil {
		t.Fatalf("UpdateSaved() error = %v", err)
	}

	got, err := store.GetSaved(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetSaved() error = %v", err)
	}
	if got.Title != "disk usage" || got.Visibility != VisibilityPublic || !got.Favorite {
		t.Errorf("got = %+v, update not applied", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "storage" {
		t.Errorf("Tags = %v, want [storage]", got.Tags)
	}
}

func TestUpdateSaved_WrongOwner(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	alice := newTestUser(t, store, "alice-upd@example.com")
	bob := newTestUser(t, store, "bob-upd@example.com")
	ctx := context.Background()

	c := &SavedCommand{UserID: alice.ID, Text: "whoami"}
	if err := store.CreateSaved(ctx, c); err != nil {
		t.Fatal(err)
	}

	c.UserID = bob.ID
	c.Visibility = VisibilityPrivate
	if err := store.UpdateSaved(ctx, c); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateSaved as wrong user error = %v, want ErrNotFound", err)
	}
}

func TestQuerySaved_Filters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	alice := newTestUser(t, store, "alice-q@example.com")
	bob := newTestUser(t, store, "bob-q@example.com")
	ctx := context.Background()

	seed := []*SavedCommand{
		{UserID: alice.ID, Text: "git status", Visibility: VisibilityPrivate, Favorite: true},
		{UserID: alice.ID, Text: "git push", Visibility: VisibilityPublic},
		{UserID: bob.ID, Text: "git pull", Visibility: VisibilityPublic},
		{UserID: bob.ID, Text: "git fetch", Visibility: VisibilityPrivate},
	}
	for _, c := range seed {
		if err := store.CreateSaved(ctx, c); err != nil {
			t.Fatalf("CreateSaved(%q) error = %v", c.Text, err)
		}
	}

	mine, err := store.QuerySaved(ctx, SavedQuery{UserID: alice.ID})
	if err != nil {
		t.Fatalf("QuerySaved() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("alice's commands = %d, want 2", len(mine))
	}

	// Public discovery excludes the requesting user and private entries.
	others, err := store.QuerySaved(ctx, SavedQuery{ExcludeUserID: alice.ID, Visibility: VisibilityPublic})
	if err != nil {
		t.Fatalf("QuerySaved() error = %v", err)
	}
	if len(others) != 1 || others[0].Text != "git pull" {
		t.Errorf("others = %+v, want only bob's public git pull", others)
	}

	favs, err := store.QuerySaved(ctx, SavedQuery{UserID: alice.ID, FavoriteOnly: true})
	if err != nil {
		t.Fatalf("QuerySaved() error = %v", err)
	}
	if len(favs) != 1 || favs[0].Text != "git status" {
		t.Errorf("favorites = %+v", favs)
	}
}

func TestFindSavedByExactText(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	u := newTestUser(t, store, "exact@example.com")
	ctx := context.Background()

	c := &SavedCommand{UserID: u.ID, Text: "kubectl get pods"}
	if err := store.CreateSaved(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := store.FindSavedByExactText(ctx, u.ID, "kubectl get pods")
	if err != nil {
		t.Fatalf("FindSavedByExactText() error = %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("ID = %q, want %q", got.ID, c.ID)
	}

	// Near-match must not count.
	_, err = store.FindSavedByExactText(ctx, u.ID, "kubectl get pods ")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("near-match error = %v, want ErrNotFound", err)
	}
}

func TestIncrementSavedUsage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	u := newTestUser(t, store, "inc@example.com")
	ctx := context.Background()

	c := &SavedCommand{UserID: u.ID, Text: "terraform plan"}
	if err := store.CreateSaved(ctx, c); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := store.IncrementSavedUsage(ctx, c.ID); err != nil {
			t.Fatalf("IncrementSavedUsage() error = %v", err)
		}
	}

	got, _ := store.GetSaved(ctx, c.ID)
	if got.UsageCount != 3 {
		t.Errorf("UsageCount = %d, want 3", got.UsageCount)
	}
}

func TestListTags_DedupedAcrossCommands(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	u := newTestUser(t, store, "tags@example.com")
	ctx := context.Background()

	for _, text := range []string{"ls", "pwd"} {
		c := &SavedCommand{UserID: u.ID, Text: text, Tags: []string{"shell", "basics"}}
		if err := store.CreateSaved(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	tags, err := store.ListTags(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("len(tags) = %d, want 2 (same names reused)", len(tags))
	}
}
