// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lherron/planbak/internal/db"
	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
)

// TempDB creates a migrated temporary SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if _, err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// WriteFile writes content to a file in dir and returns its path
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// Payload returns the canonical JSON of s as an import payload.
func Payload(t *testing.T, s *snapshot.Snapshot) string {
	t.Helper()
	data, err := snapshot.CanonicalJSON(s)
	if err != nil {
		t.Fatalf("Failed to encode snapshot: %v", err)
	}
	return string(data)
}

// Snapshot returns a valid snapshot with at least one record of every kind.
// Each call returns fresh slices, so callers may modify the result.
func Snapshot() *snapshot.Snapshot {
	s := snapshot.New()
	s.Projects = []domain.Project{
		{ID: "p-root", Name: "Home", Order: 0, IsExpanded: true, Tags: []string{"personal"}, CreatedAt: 1000, UpdatedAt: 1000},
		{ID: "p-child", Name: "Garden", ParentID: "p-root", Order: 1, CreatedAt: 1000, UpdatedAt: 2000},
	}
	s.Goals = []domain.Goal{
		{ID: "g1", Text: "Plant tomatoes", Tags: []string{"spring"}, CreatedAt: 1100, UpdatedAt: 1100},
		{ID: "g2", Text: "Fix fence", IsCompleted: true, CreatedAt: 1200, UpdatedAt: 1300, CompletedAt: 1300},
	}
	s.ListItems = []domain.ListItem{
		{ID: "li1", ProjectID: "p-child", EntityID: "g1", ItemType: domain.ItemTypeGoal, Order: 0},
		{ID: "li2", ProjectID: "p-child", EntityID: "g2", ItemType: domain.ItemTypeGoal, Order: 1},
	}
	s.NoteDocuments = []domain.NoteDocument{
		{ID: "doc1", ProjectID: "p-child", Name: "Seeds", Content: "<b>heirloom</b> & more", CreatedAt: 1000, UpdatedAt: 1000},
	}
	s.NoteDocumentItems = []domain.NoteDocumentItem{
		{ID: "doc1-i1", DocumentID: "doc1", Content: "Cherokee Purple", ItemOrder: 0, CreatedAt: 1000, UpdatedAt: 1000},
	}
	s.Checklists = []domain.Checklist{{ID: "cl1", ProjectID: "p-child", Name: "Tools"}}
	s.ChecklistItems = []domain.ChecklistItem{{ID: "cl1-i1", ChecklistID: "cl1", Content: "Spade", ItemOrder: 0}}
	s.LinkItems = []domain.LinkItem{
		{ID: "link1", LinkData: domain.LinkData{Type: "URL", Target: "https://example.com/seeds", DisplayName: "Seed shop"}, CreatedAt: 900},
	}
	s.InboxRecords = []domain.InboxRecord{{ID: "in1", ProjectID: "p-root", Text: "buy compost", ItemOrder: 0, CreatedAt: 1500}}
	s.ProjectExecutionLogs = []domain.ProjectExecutionLog{
		{ID: "log1", ProjectID: "p-child", Timestamp: 1600, Type: "NOTE", Description: "started"},
	}
	s.Scripts = []domain.Script{{ID: "sc1", Name: "water", Content: "water all beds", CreatedAt: 1000, UpdatedAt: 1000}}
	s.Attachments = []domain.Attachment{
		{ID: "att1", AttachmentType: "LINK_ITEM", EntityID: "link1", OwnerProjectID: "p-child", CreatedAt: 1000, UpdatedAt: 1000},
	}
	s.ProjectAttachmentCrossRefs = []domain.ProjectAttachmentCrossRef{
		{ProjectID: "p-child", AttachmentID: "att1", AttachmentOrder: 0},
	}
	s.BacklogOrders = []domain.BacklogOrder{{ID: "bo1", ProjectID: "p-child", ItemID: "li1", Order: 0}}
	s.LegacyNotes = []domain.LegacyNote{{ID: "ln1", ProjectID: "p-root", Title: "old", Content: "text", CreatedAt: 100, UpdatedAt: 100}}
	s.ActivityRecords = []domain.ActivityRecord{{ID: "act1", ProjectID: "p-child", Text: "digging", StartTime: 1000, EndTime: 2000, CreatedAt: 1000}}
	return s
}
