package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/curator/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "curator-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.UpsertNote(NoteRow{Path: "m.md", Checksum: "1"}, "body", nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	sums, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if sums["m.md"] != "1" {
		t.Errorf("checksums = %v, want m.md", sums)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", []string{"other"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetNote(t *testing.T) {
	db := testDB(t)
	updated := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	err := db.UpsertNote(NoteRow{
		Path:      "dir/topic.md",
		Title:     "Topic",
		Checksum:  "c1",
		Tags:      []string{"x"},
		UpdatedAt: updated,
	}, "topic body", []string{"Alpha", "Beta"})
	if err != nil {
		t.Fatal(err)
	}

	n, err := db.GetNote("dir/topic.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Topic" || n.Body != "topic body" || n.Checksum != "c1" {
		t.Errorf("note = %+v", n)
	}
	if diff := cmp.Diff([]string{"Alpha", "Beta"}, n.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x"}, n.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if !n.UpdatedAt.Equal(updated) {
		t.Errorf("updated_at = %v, want %v", n.UpdatedAt, updated)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNote("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNotes_OrderedWithLinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "b.md", Checksum: "2"}, "b", []string{"a"})
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1"}, "a", nil)

	notes, err := db.Notes()
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 2 || notes[0].Path != "a.md" || notes[1].Path != "b.md" {
		t.Fatalf("notes = %+v", notes)
	}
	if len(notes[0].Links) != 0 {
		t.Errorf("a.md links = %v, want none", notes[0].Links)
	}
	if diff := cmp.Diff([]string{"a"}, notes[1].Links); diff != "" {
		t.Errorf("b.md links mismatch (-want +got):\n%s", diff)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1"}, "body", []string{"b"})
	_ = db.UpsertNote(NoteRow{Path: "c.md", Checksum: "2"}, "body", []string{"b"})

	bl, err := db.Backlinks("b")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if diff := cmp.Diff([]string{"a.md", "c.md"}, bl); diff != "" {
		t.Errorf("backlinks mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x"}, "body", []string{"target"})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1"}, "old body", []string{"x"})
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2", Tags: []string{"new"}}, "new body", []string{"y"})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("x")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("y")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", Checksum: "1"}, "uniqueword appears here", nil)
	_ = db.UpsertNote(NoteRow{Path: "t.md", Title: "Other", Checksum: "2"}, "nothing", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}
