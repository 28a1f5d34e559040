package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluicehq/sluice/internal/mapper"
	"github.com/sluicehq/sluice/internal/models"
)

// memStore is an in-memory RecordStore.
type memStore struct {
	records []models.Record

	ensureErr error
	existsErr error
	appendErr error
	recentErr error

	appendCalls int
}

func (m *memStore) EnsureSchema(ctx context.Context) error {
	return m.ensureErr
}

func (m *memStore) Exists(ctx context.Context, sid string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	if sid == "" {
		return false, nil
	}
	for _, r := range m.records {
		if r.MessageSID == sid {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Append(ctx context.Context, record models.Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appendCalls++
	m.records = append(m.records, record)
	return nil
}

func (m *memStore) Recent(ctx context.Context, limit int) ([]map[string]string, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	out := []map[string]string{}
	records := m.records
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	for _, r := range records {
		out = append(out, map[string]string{models.SIDColumn: r.MessageSID})
	}
	return out, nil
}

type recordingPublisher struct {
	published []models.Record
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, record models.Record) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, record)
	return nil
}

func (p *recordingPublisher) Close() {}

func newTestService(store *memStore, publisher *recordingPublisher) *IngestService {
	m := mapper.New("UTC", "https://x.test", "")
	if publisher == nil {
		return NewIngestService(store, m, nil, nil, nil)
	}
	return NewIngestService(store, m, nil, publisher, nil)
}

func webhookForm(sid string) models.Form {
	return models.Form{
		"MessageSid": sid,
		"From":       "whatsapp:+5491155550123",
		"Body":       "hola",
	}
}

func TestIngest_StoresNewMessage(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store, nil)

	stored, err := svc.Ingest(context.Background(), webhookForm("SM1"))
	require.NoError(t, err)
	assert.True(t, stored)
	require.Len(t, store.records, 1)
	assert.Equal(t, "SM1", store.records[0].MessageSID)
	assert.Equal(t, "5491155550123", store.records[0].Sender)
}

func TestIngest_IdempotentAcrossRedeliveries(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Ingest(ctx, webhookForm("SM1"))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.appendCalls)
	assert.Len(t, store.records, 1)
}

func TestIngest_DuplicateIsSilentNoOp(t *testing.T) {
	store := &memStore{records: []models.Record{{MessageSID: "SM1"}}}
	svc := newTestService(store, nil)

	stored, err := svc.Ingest(context.Background(), webhookForm("SM1"))
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, 0, store.appendCalls)
}

func TestIngest_LegacySIDFallback(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store, nil)

	form := models.Form{"SmsMessageSid": "SM9", "Body": "hola"}
	stored, err := svc.Ingest(context.Background(), form)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, "SM9", store.records[0].MessageSID)
}

func TestIngest_StorageFailures(t *testing.T) {
	backendDown := fmt.Errorf("backend down")

	tests := []struct {
		name  string
		store *memStore
	}{
		{"ensure schema fails", &memStore{ensureErr: backendDown}},
		{"exists fails", &memStore{existsErr: backendDown}},
		{"append fails", &memStore{appendErr: backendDown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.store, nil)
			stored, err := svc.Ingest(context.Background(), webhookForm("SM1"))
			assert.False(t, stored)
			assert.ErrorIs(t, err, ErrStorageUnavailable)
		})
	}
}

func TestIngest_PublishesStoredRecord(t *testing.T) {
	store := &memStore{}
	publisher := &recordingPublisher{}
	svc := newTestService(store, publisher)

	_, err := svc.Ingest(context.Background(), webhookForm("SM1"))
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, "SM1", publisher.published[0].MessageSID)
}

func TestIngest_PublishFailureDoesNotFailIngestion(t *testing.T) {
	store := &memStore{}
	publisher := &recordingPublisher{err: fmt.Errorf("nats down")}
	svc := newTestService(store, publisher)

	stored, err := svc.Ingest(context.Background(), webhookForm("SM1"))
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Len(t, store.records, 1)
}

func TestIngest_DuplicateNotPublished(t *testing.T) {
	store := &memStore{records: []models.Record{{MessageSID: "SM1"}}}
	publisher := &recordingPublisher{}
	svc := newTestService(store, publisher)

	_, err := svc.Ingest(context.Background(), webhookForm("SM1"))
	require.NoError(t, err)
	assert.Empty(t, publisher.published)
}

func TestRecent_DefaultLimit(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 60; i++ {
		store.records = append(store.records, models.Record{MessageSID: fmt.Sprintf("SM%d", i)})
	}
	svc := newTestService(store, nil)

	records, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, records, DefaultInboxLimit)
	assert.Equal(t, "SM59", records[len(records)-1][models.SIDColumn])
}

func TestRecent_StorageFailure(t *testing.T) {
	store := &memStore{recentErr: fmt.Errorf("backend down")}
	svc := newTestService(store, nil)

	_, err := svc.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
