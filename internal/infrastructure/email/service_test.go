package email

import (
	"context"
	"errors"
	"sync"
	"testing"

	domainEmail "device-fleet-manager/internal/domain/email"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domainEmail.Record
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[uuid.UUID]*domainEmail.Record)}
}

func (r *memoryRepo) Create(_ context.Context, record *domainEmail.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *memoryRepo) MarkDelivered(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].Delivered = true
	return nil
}

func (r *memoryRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].Error = &reason
	return nil
}

func (r *memoryRepo) ListByRecipient(_ context.Context, recipient string) ([]*domainEmail.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainEmail.Record
	for _, rec := range r.records {
		if rec.Recipient == recipient {
			out = append(out, rec)
		}
	}
	return out, nil
}

type captureSender struct {
	err      error
	to       string
	subject  string
	htmlBody string
}

func (s *captureSender) From() string { return "noreply@example.com" }

func (s *captureSender) Send(_ context.Context, to, subject, htmlBody string) error {
	s.to, s.subject, s.htmlBody = to, subject, htmlBody
	return s.err
}

func TestTemplates_RenderAll(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	for id := range subjects {
		subject, body, err := tpl.Render(id, map[string]interface{}{
			"name":       "Ada",
			"mac_id":     "AA:BB",
			"reset_link": "https://example.com/reset?k=abc",
			"valid_for":  1,
		})
		require.NoError(t, err, id)
		assert.NotEmpty(t, subject)
		assert.Contains(t, body, "Hello Ada")
	}
}

func TestTemplates_Unknown(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	_, _, err = tpl.Render("nope", nil)
	assert.Error(t, err)
}

func TestTemplates_EscapesData(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	_, body, err := tpl.Render(domainEmail.TemplateActivateDevice, map[string]interface{}{
		"name":   "<script>",
		"mac_id": "AA",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestService_SendRecordsDelivery(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	repo := newMemoryRepo()
	sender := &captureSender{}
	svc := NewService(repo, sender, tpl)

	err = svc.Send(context.Background(), domainEmail.TemplateResetPassword, map[string]interface{}{
		"name":       "Ada",
		"reset_link": "https://example.com/reset?k=tok",
		"valid_for":  1,
	}, "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", sender.to)
	assert.Equal(t, "Reset your password", sender.subject)
	assert.Contains(t, sender.htmlBody, "https://example.com/reset?k=tok")

	records, _ := repo.ListByRecipient(context.Background(), "ada@example.com")
	require.Len(t, records, 1)
	assert.True(t, records[0].Delivered)
	assert.Equal(t, "noreply@example.com", records[0].Sender)
	assert.Nil(t, records[0].Error)
}

func TestService_SendFailureIsRecorded(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	repo := newMemoryRepo()
	sender := &captureSender{err: errors.New("connection refused")}
	svc := NewService(repo, sender, tpl)

	err = svc.Send(context.Background(), domainEmail.TemplateCreateAccount, map[string]interface{}{"name": "Ada"}, "ada@example.com")
	require.Error(t, err)

	records, _ := repo.ListByRecipient(context.Background(), "ada@example.com")
	require.Len(t, records, 1)
	assert.False(t, records[0].Delivered)
	require.NotNil(t, records[0].Error)
	assert.Contains(t, *records[0].Error, "connection refused")
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("a@example.com", "b@example.com", "Hi", "<p>x</p>"))
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, len(msg) > 0 && msg[len(msg)-8:] == "<p>x</p>")
}
