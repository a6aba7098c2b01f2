package mongostore

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func TestTicketDocumentRoundTrip(t *testing.T) {
	assignee := "s1"
	in := &domain.Ticket{
		ID:          "t1",
		OwnerID:     "u1",
		CategoryKey: "network",
		Category:    "Network Issue",
		Description: "VPN down",
		Status:      domain.TicketStatusInProgress,
		Color:       "green",
		AssigneeID:  &assignee,
		CreatedAt:   time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	raw, err := bson.Marshal(toTicketDoc(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc ticketDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if out.ID != in.ID || out.Status != in.Status || out.AssigneeID == nil || *out.AssigneeID != "s1" {
		t.Fatalf("unexpected ticket: %+v", out)
	}
	if out.FeedbackID != nil {
		t.Fatal("absent optional field should decode as nil")
	}
}

func TestDocumentsFailingValidationAreRejected(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "t1", "owner_id": "u1", "status": "SNOOZED", "category": "Other", "description": "x"})
	if err != nil {
		t.Fatal(err)
	}
	var doc ticketDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if _, err := doc.toDomain(); !errors.Is(err, repository.ErrInvalidDocument) {
		t.Fatalf("error = %v, want ErrInvalidDocument", err)
	}

	fb := feedbackDoc{ID: "f1", TicketID: "t1", UserID: "u1", Rating: 9}
	if _, err := fb.toDomain(); !errors.Is(err, repository.ErrInvalidDocument) {
		t.Fatalf("rating 9 error = %v, want ErrInvalidDocument", err)
	}
}

func TestAccountDocumentStoresLowercasedEmail(t *testing.T) {
	doc := toAccountDoc(&domain.Account{ID: "a1", Email: "Admin@Example.COM", Role: domain.RoleAdmin})
	if doc.EmailLower != "admin@example.com" {
		t.Fatalf("email_lower = %q", doc.EmailLower)
	}
}

func TestMessageDocumentKeepsAttachments(t *testing.T) {
	msg := &domain.TicketMessage{
		ID: "m1", ThreadID: "t1", AuthorID: "u1", Body: "see log",
		Attachments: []domain.AttachmentReference{{ID: "att1", StorageKey: "t1/m1/log.txt", FileName: "log.txt"}},
	}
	doc := toMessageDoc(msg)
	out, err := doc.toDomain()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Attachments) != 1 || out.Attachments[0].MessageID != "m1" {
		t.Fatalf("attachments not restored: %+v", out.Attachments)
	}
}
