package prescriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox/payloads"
	"github.com/chemtech-ke/pharmos-backend/pkg/pagination"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type fixedStock map[string]int64

func (f fixedStock) Available(itemKey string) (int64, bool) {
	qty, ok := f[itemKey]
	return qty, ok
}

type fakeStore struct {
	docs   map[string]map[string]any
	events []outbox.DomainEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string]any{}}
}

func (f *fakeStore) WriteNewWith(_ context.Context, _ string, fields any, _ *outbox.ActorRef, build func(key string) []outbox.DomainEvent) (string, error) {
	key := "rx-1"
	f.docs[key] = fields.(map[string]any)
	if build != nil {
		f.events = append(f.events, build(key)...)
	}
	return key, nil
}

func (f *fakeStore) List(_ context.Context, collection string, _ realtime.ListOptions) ([]realtime.RemoteDocument, error) {
	docs := make([]realtime.RemoteDocument, 0, len(f.docs))
	for key, fields := range f.docs {
		docs = append(docs, realtime.NewRemoteDocument(collection, key, fields))
	}
	return docs, nil
}

func newTestService(t *testing.T, store *fakeStore, stock fixedStock) *Service {
	t.Helper()
	m, err := NewMirror(store)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	m.Start(context.Background())

	svc, err := NewService(store, stock, m)
	require.NoError(t, err)
	return svc
}

func TestRecordChecksStockPerLine(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, fixedStock{"p500": 10, "amx": 2})

	input := RecordInput{
		PatientName: "Jane Wanjiru",
		Prescriber:  "Dr. Achieng",
		Lines: []LineInput{
			{ItemKey: "p500", Name: "Paracetamol", Quantity: 6, Dosage: "2x3 after meals"},
			{ItemKey: "amx", Name: "Amoxicillin", Quantity: 3, Dosage: "1x3"},
		},
	}
	_, err := svc.Record(context.Background(), input, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockExceeded))
	require.Empty(t, store.docs, "nothing written when a line fails")

	input.Lines[1].Quantity = 2
	key, err := svc.Record(context.Background(), input, nil)
	require.NoError(t, err)
	require.Contains(t, store.docs, key)
}

func TestRecordUnknownItem(t *testing.T) {
	svc := newTestService(t, newFakeStore(), fixedStock{})
	_, err := svc.Record(context.Background(), RecordInput{
		PatientName: "Jane",
		Lines:       []LineInput{{ItemKey: "ghost", Name: "Ghost", Quantity: 1}},
	}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRecordValidation(t *testing.T) {
	svc := newTestService(t, newFakeStore(), fixedStock{})

	_, err := svc.Record(context.Background(), RecordInput{PatientName: " "}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Record(context.Background(), RecordInput{PatientName: "Jane"}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRecordEmitsEventWithActor(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, fixedStock{"p500": 10})

	userID := uuid.New()
	key, err := svc.Record(context.Background(), RecordInput{
		PatientName: "Jane Wanjiru",
		Lines:       []LineInput{{ItemKey: "p500", Name: "Paracetamol", Quantity: 1}},
	}, &outbox.ActorRef{UserID: userID})
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	require.Equal(t, enums.EventPrescriptionRecorded, store.events[0].EventType)
	payload := store.events[0].Data.(payloads.PrescriptionRecordedEvent)
	require.Equal(t, key, payload.PrescriptionKey)
	require.Equal(t, userID, payload.RecordedBy)
}

func TestListFiltersByPatientOrPrescriber(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.docs["rx-a"] = map[string]any{
		"patient_name": "Jane Wanjiru", "prescriber": "Dr. Achieng",
		"recorded_at": base.Format(time.RFC3339),
		"lines":       []any{map[string]any{"item_key": "p500", "name": "Paracetamol", "quantity": int64(1), "dosage": ""}},
	}
	store.docs["rx-b"] = map[string]any{
		"patient_name": "Brian Otieno", "prescriber": "Dr. Mwangi",
		"recorded_at": base.Add(time.Hour).Format(time.RFC3339),
		"lines":       []any{},
	}
	svc := newTestService(t, store, fixedStock{})

	byPatient := svc.List("wanjiru", pagination.Params{})
	require.Equal(t, 1, byPatient.Total)

	byPrescriber := svc.List("mwangi", pagination.Params{})
	require.Equal(t, 1, byPrescriber.Total)
	require.Equal(t, "Brian Otieno", byPrescriber.Items[0].PatientName)

	all := svc.List("", pagination.Params{})
	require.Equal(t, 2, all.Total)
	require.Equal(t, "rx-b", all.Items[0].Key, "newest first")
}
