package confirmation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type failedCall struct {
	ID          uuid.UUID
	Attempts    int
	MaxAttempts int
	NextAt      time.Time
	Reason      string
}

type fakeRepo struct {
	mu          sync.Mutex
	queued      map[string]bool
	inserted    []Entry
	rearmed     []Entry
	due         []Delivery
	history     []Delivery
	sent        []uuid.UUID
	failed      []failedCall
	cancelled   int64
	insertErr   error
	listErr     error
	markSentErr error
}

func (f *fakeRepo) InsertEntries(_ context.Context, entries []Entry, _ time.Time) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if f.queued == nil {
		f.queued = make(map[string]bool)
	}
	var written []Entry
	for _, e := range entries {
		key := entryKey(e.ClinicID, e.AppointmentID, e.Stage)
		if f.queued[key] {
			continue
		}
		f.queued[key] = true
		e.ID = uuid.New()
		written = append(written, e)
	}
	f.inserted = append(f.inserted, written...)
	return written, nil
}

func (f *fakeRepo) RearmEntries(_ context.Context, entries []Entry, _ time.Time) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	written := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.ID = uuid.New()
		written = append(written, e)
	}
	f.rearmed = append(f.rearmed, written...)
	return written, nil
}

func (f *fakeRepo) ClaimDue(_ context.Context, asOf time.Time, limit int, lease time.Duration) ([]Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Delivery
	for i := range f.due {
		d := &f.due[i]
		if d.NextAttemptAt.After(asOf) || len(out) >= limit {
			continue
		}
		d.NextAttemptAt = asOf.Add(lease)
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRepo) ListByAppointment(_ context.Context, _, appointmentID string) ([]Delivery, error) {
	var out []Delivery
	for _, d := range f.history {
		if d.AppointmentID == appointmentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkSent(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markSentErr != nil {
		return f.markSentErr
	}
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, attempts, maxAttempts int, nextAt time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, failedCall{ID: id, Attempts: attempts, MaxAttempts: maxAttempts, NextAt: nextAt, Reason: reason})
	return nil
}

func (f *fakeRepo) CancelForAppointment(context.Context, string, string) (int64, error) {
	return f.cancelled, nil
}

func (f *fakeRepo) Stats(context.Context, string) (*Stats, error) {
	return &Stats{Pending: int64(len(f.due)), Sent: int64(len(f.sent)), Failed: int64(len(f.failed))}, nil
}

type fakeDirectory struct {
	recipients map[string]*Recipient
}

func (f *fakeDirectory) Recipient(_ context.Context, _, appointmentID string) (*Recipient, error) {
	r, ok := f.recipients[appointmentID]
	if !ok {
		return nil, ErrRecipientNotFound
	}
	return r, nil
}

type sentMessage struct {
	To      Recipient
	Subject string
	Body    string
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

func (f *fakeSender) Send(_ context.Context, to Recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

type fakePublisher struct {
	published []Entry
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, entries []Entry) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, entries...)
	return nil
}

var errBoom = errors.New("boom")
