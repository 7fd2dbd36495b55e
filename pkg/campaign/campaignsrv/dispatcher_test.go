package campaignsrv_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"

	"github.com/digpatho/crm-backend/pkg/campaign"
	"github.com/digpatho/crm-backend/pkg/campaign/campaignsrv"
	"github.com/digpatho/crm-backend/pkg/mailer"
)

// --- in-memory fakes ---

// memStore backs both the campaign and the queue repository with plain
// slices so tests can assert on final record states directly.
type memStore struct {
	camp    campaign.Campaign
	records []campaign.QueueRecord
}

func newMemStore(recipients ...string) *memStore {
	s := &memStore{
		camp: campaign.Campaign{
			ID:        "camp-1",
			Name:      "Q3 outreach",
			Status:    campaign.StatusSending,
			CreatedBy: "op-1",
		},
	}
	for i, email := range recipients {
		s.records = append(s.records, campaign.QueueRecord{
			ID:         fmt.Sprintf("rec-%d", i+1),
			CampaignID: s.camp.ID,
			ToEmail:    email,
			Subject:    "Hola",
			Body:       "Cuerpo del mensaje",
			Status:     campaign.RecordPending,
		})
	}
	s.camp.TotalCount = len(s.records)
	return s
}

func (s *memStore) Create(context.Context, *campaign.Campaign, []campaign.QueueRecord) error {
	return nil
}

func (s *memStore) Get(context.Context, string) (*campaign.Campaign, error) {
	c := s.camp
	return &c, nil
}

func (s *memStore) List(context.Context, string, kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	return kernel.Paginated[campaign.Campaign]{}, nil
}

func (s *memStore) UpdateStatus(_ context.Context, _ string, status campaign.Status) error {
	s.camp.Status = status
	return nil
}

func (s *memStore) MarkStarted(_ context.Context, _ string, at time.Time) error {
	s.camp.Status = campaign.StatusSending
	if s.camp.StartedAt == nil {
		s.camp.StartedAt = &at
	}
	return nil
}

func (s *memStore) Finish(_ context.Context, _ string, status campaign.Status, at time.Time) error {
	s.camp.Status = status
	s.camp.CompletedAt = &at
	return nil
}

func (s *memStore) SyncCounts(context.Context, string) error {
	sent, failed := 0, 0
	for _, r := range s.records {
		switch r.Status {
		case campaign.RecordSent:
			sent++
		case campaign.RecordFailed:
			failed++
		}
	}
	s.camp.SentCount = sent
	s.camp.FailedCount = failed
	return nil
}

func (s *memStore) Delete(context.Context, string) error { return nil }

func (s *memStore) Progress(context.Context, string) (campaign.Progress, error) {
	p := campaign.Progress{Total: len(s.records)}
	for _, r := range s.records {
		switch r.Status {
		case campaign.RecordSent:
			p.Sent++
		case campaign.RecordFailed:
			p.Failed++
		default:
			p.Pending++
		}
	}
	return p, nil
}

func (s *memStore) Pending(context.Context, string) ([]campaign.QueueRecord, error) {
	var out []campaign.QueueRecord
	for _, r := range s.records {
		if r.Status == campaign.RecordPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ListByCampaign(context.Context, string, kernel.PaginationOptions) (kernel.Paginated[campaign.QueueRecord], error) {
	return kernel.Paginated[campaign.QueueRecord]{}, nil
}

func (s *memStore) MarkSending(_ context.Context, id string) error {
	return s.setStatus(id, campaign.RecordSending, "")
}

func (s *memStore) MarkSent(_ context.Context, id, gmailID, threadID string, at time.Time) error {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = campaign.RecordSent
			s.records[i].GmailID = gmailID
			s.records[i].ThreadID = threadID
			s.records[i].SentAt = &at
			return nil
		}
	}
	return campaign.ErrRecordNotFound()
}

func (s *memStore) MarkFailed(_ context.Context, id, errMsg string) error {
	return s.setStatus(id, campaign.RecordFailed, errMsg)
}

func (s *memStore) setStatus(id string, status campaign.RecordStatus, errMsg string) error {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			s.records[i].ErrorMessage = errMsg
			return nil
		}
	}
	return campaign.ErrRecordNotFound()
}

func (s *memStore) countByStatus(status campaign.RecordStatus) int {
	n := 0
	for _, r := range s.records {
		if r.Status == status {
			n++
		}
	}
	return n
}

// fakeControl holds a signal in memory.
type fakeControl struct {
	signal campaign.Signal
}

func (f *fakeControl) RaisePause(context.Context, string) error {
	f.signal = campaign.SignalPause
	return nil
}

func (f *fakeControl) RaiseCancel(context.Context, string) error {
	f.signal = campaign.SignalCancel
	return nil
}

func (f *fakeControl) Clear(context.Context, string) error {
	f.signal = campaign.SignalNone
	return nil
}

func (f *fakeControl) State(context.Context, string) (campaign.Signal, error) {
	return f.signal, nil
}

// fakeTransport counts sends. fail decides per call (1-based) whether the
// provider rejects; after runs once the call returns, letting tests raise
// control signals mid-run.
type fakeTransport struct {
	calls  int
	tokens []string
	fail   func(call int) error
	after  func(call int)
}

func (f *fakeTransport) Send(_ context.Context, _ string, accessToken string) (mailer.Receipt, error) {
	f.calls++
	f.tokens = append(f.tokens, accessToken)
	call := f.calls
	if f.after != nil {
		defer f.after(call)
	}
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return mailer.Receipt{}, err
		}
	}
	return mailer.Receipt{
		MessageID: fmt.Sprintf("gm-%d", call),
		ThreadID:  fmt.Sprintf("th-%d", call),
	}, nil
}

// fakeTokens returns a static token; ForceRefresh rotates it.
type fakeTokens struct {
	token     string
	accessErr error
	refreshes int
}

func (f *fakeTokens) AccessToken(context.Context) (string, error) {
	if f.accessErr != nil {
		return "", f.accessErr
	}
	return f.token, nil
}

func (f *fakeTokens) ForceRefresh(context.Context) (string, error) {
	f.refreshes++
	return fmt.Sprintf("%s-r%d", f.token, f.refreshes), nil
}

// fakeJournal collects journal entries.
type fakeJournal struct {
	entries []campaign.SentEmail
	err     error
}

func (f *fakeJournal) RecordEmailSent(_ context.Context, e campaign.SentEmail) error {
	f.entries = append(f.entries, e)
	return f.err
}

var sender = mailer.Identity{Email: "ana@digpatho.com", Name: "Ana", Signature: "Ana\nDigpatho"}

func newDispatcher(store *memStore, control *fakeControl, journal *fakeJournal, transport *fakeTransport, opts ...campaignsrv.DispatcherOption) *campaignsrv.Dispatcher {
	opts = append([]campaignsrv.DispatcherOption{campaignsrv.WithSendDelay(0)}, opts...)
	return campaignsrv.NewDispatcher(store, store, control, journal, transport, nil, opts...)
}

func authExpiredErr() error {
	return &errx.Error{
		Code:       mailer.ErrAuthExpired.Code,
		Message:    mailer.ErrAuthExpired.Message,
		Type:       mailer.ErrAuthExpired.Type,
		HTTPStatus: mailer.ErrAuthExpired.HTTPStatus,
	}
}

// --- Run tests ---

func TestRun_AllDelivered(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com", "c@x.com")
	control := &fakeControl{}
	journal := &fakeJournal{}
	transport := &fakeTransport{}
	d := newDispatcher(store, control, journal, transport)

	err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.camp.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed, got %s", store.camp.Status)
	}
	if transport.calls != 3 {
		t.Fatalf("expected 3 sends, got %d", transport.calls)
	}
	if got := store.countByStatus(campaign.RecordSent); got != 3 {
		t.Fatalf("expected 3 sent records, got %d", got)
	}
	if store.camp.SentCount != 3 || store.camp.FailedCount != 0 {
		t.Fatalf("counters not synced: sent=%d failed=%d", store.camp.SentCount, store.camp.FailedCount)
	}
	if store.camp.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}
	if len(journal.entries) != 3 {
		t.Fatalf("expected 3 journal entries, got %d", len(journal.entries))
	}
	if journal.entries[0].GmailID != "gm-1" || journal.entries[0].ThreadID != "th-1" {
		t.Fatalf("journal entry missing provider ids: %+v", journal.entries[0])
	}
}

func TestRun_PerRecordFailureContinues(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com", "c@x.com")
	transport := &fakeTransport{
		fail: func(call int) error {
			if call == 2 {
				return errx.External("mailbox unavailable")
			}
			return nil
		},
	}
	d := newDispatcher(store, &fakeControl{}, &fakeJournal{}, transport)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.camp.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed, got %s", store.camp.Status)
	}
	if store.camp.SentCount != 2 || store.camp.FailedCount != 1 {
		t.Fatalf("expected 2 sent / 1 failed, got %d/%d", store.camp.SentCount, store.camp.FailedCount)
	}
	if store.records[1].Status != campaign.RecordFailed {
		t.Fatalf("record 2 not failed: %s", store.records[1].Status)
	}
	if store.records[1].ErrorMessage == "" {
		t.Fatal("failed record did not keep its error message")
	}
}

func TestRun_AllFailedMarksCampaignFailed(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com")
	transport := &fakeTransport{
		fail: func(int) error { return errx.External("rejected") },
	}
	d := newDispatcher(store, &fakeControl{}, &fakeJournal{}, transport)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.camp.Status != campaign.StatusFailed {
		t.Fatalf("expected failed, got %s", store.camp.Status)
	}
	if store.camp.FailedCount != 2 {
		t.Fatalf("expected 2 failed, got %d", store.camp.FailedCount)
	}
}

func TestRun_AuthExpiredBeforeFirstSend(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com")
	transport := &fakeTransport{}
	d := newDispatcher(store, &fakeControl{}, &fakeJournal{}, transport)

	err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{accessErr: authExpiredErr()})
	if !mailer.IsAuthExpired(err) {
		t.Fatalf("expected auth expired error, got %v", err)
	}

	if transport.calls != 0 {
		t.Fatalf("expected zero sends, got %d", transport.calls)
	}
	if got := store.countByStatus(campaign.RecordPending); got != 2 {
		t.Fatalf("expected all records still pending, got %d pending", got)
	}
	if store.camp.Status != campaign.StatusSending {
		t.Fatalf("campaign status should be untouched, got %s", store.camp.Status)
	}
}

func TestRun_FatalMidRunLeavesStateForResume(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com", "c@x.com")
	transport := &fakeTransport{
		fail: func(call int) error {
			if call == 2 {
				return errx.Internal("queue store unavailable")
			}
			return nil
		},
	}
	d := newDispatcher(store, &fakeControl{}, &fakeJournal{}, transport)

	err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"})
	if err == nil {
		t.Fatal("expected fatal error")
	}

	if store.camp.CompletedAt != nil {
		t.Fatal("fatal error must not settle the campaign")
	}
	if got := store.countByStatus(campaign.RecordSent); got != 1 {
		t.Fatalf("expected 1 sent before abort, got %d", got)
	}
	if store.records[2].Status != campaign.RecordPending {
		t.Fatalf("record 3 should stay pending, got %s", store.records[2].Status)
	}
}

func TestRun_PauseKeepsRemainingPending(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com")
	control := &fakeControl{}
	transport := &fakeTransport{
		after: func(call int) {
			if call == 1 {
				_ = control.RaisePause(context.Background(), store.camp.ID)
			}
		},
	}
	d := newDispatcher(store, control, &fakeJournal{}, transport)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.camp.Status != campaign.StatusPaused {
		t.Fatalf("expected paused, got %s", store.camp.Status)
	}
	if got := store.countByStatus(campaign.RecordSent); got != 1 {
		t.Fatalf("expected 1 sent, got %d", got)
	}
	if got := store.countByStatus(campaign.RecordPending); got != 4 {
		t.Fatalf("expected 4 still pending, got %d", got)
	}
	if store.camp.CompletedAt != nil {
		t.Fatal("paused campaign must not be settled")
	}

	// Resume: a fresh run consumes exactly the remaining records.
	transport.after = nil
	_ = control.Clear(context.Background(), store.camp.ID)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("resume Run: %v", err)
	}
	if store.camp.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed after resume, got %s", store.camp.Status)
	}
	if transport.calls != 5 {
		t.Fatalf("expected 5 total sends across both runs, got %d", transport.calls)
	}
}

func TestRun_CancelAbandonsWithoutTouchingStatus(t *testing.T) {
	store := newMemStore("a@x.com", "b@x.com", "c@x.com")
	control := &fakeControl{}
	transport := &fakeTransport{
		after: func(call int) {
			if call == 1 {
				_ = control.RaiseCancel(context.Background(), store.camp.ID)
			}
		},
	}
	d := newDispatcher(store, control, &fakeJournal{}, transport)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if transport.calls != 1 {
		t.Fatalf("expected 1 send before cancel, got %d", transport.calls)
	}
	if store.camp.Status != campaign.StatusSending {
		t.Fatalf("cancel must not alter campaign status, got %s", store.camp.Status)
	}
	if store.camp.CompletedAt != nil {
		t.Fatal("cancelled campaign must not be settled")
	}
	if got := store.countByStatus(campaign.RecordPending); got != 2 {
		t.Fatalf("cancelled records should stay pending, got %d", got)
	}
	if store.camp.SentCount != 1 {
		t.Fatalf("counters should reflect the partial run, got sent=%d", store.camp.SentCount)
	}

	// Abandonment keeps the campaign alive: with the signal gone, a later
	// run drains the remainder and settles normally.
	transport.after = nil
	_ = control.Clear(context.Background(), store.camp.ID)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if store.camp.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed after the later run, got %s", store.camp.Status)
	}
	if transport.calls != 3 {
		t.Fatalf("expected 3 total sends across both runs, got %d", transport.calls)
	}
}

func TestRun_EmptyQueueSettlesImmediately(t *testing.T) {
	store := newMemStore()
	transport := &fakeTransport{}
	d := newDispatcher(store, &fakeControl{}, &fakeJournal{}, transport)

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if transport.calls != 0 {
		t.Fatalf("expected no sends, got %d", transport.calls)
	}
	if store.camp.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed, got %s", store.camp.Status)
	}
}

func TestRun_ForceRefreshCadence(t *testing.T) {
	emails := make([]string, 7)
	for i := range emails {
		emails[i] = fmt.Sprintf("u%d@x.com", i)
	}
	store := newMemStore(emails...)
	tokens := &fakeTokens{token: "tok"}
	transport := &fakeTransport{}
	d := newDispatcher(store, &fakeControl{}, &fakeJournal{}, transport, campaignsrv.WithRefreshEvery(3))

	if err := d.Run(context.Background(), &store.camp, sender, tokens); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Refresh fires before records 3 and 6 (0-based), never before record 0.
	if tokens.refreshes != 2 {
		t.Fatalf("expected 2 forced refreshes, got %d", tokens.refreshes)
	}
	if transport.tokens[0] != "tok" {
		t.Fatalf("first send used %q, want warm token", transport.tokens[0])
	}
	if transport.tokens[3] != "tok-r1" {
		t.Fatalf("fourth send used %q, want refreshed token", transport.tokens[3])
	}
	if transport.tokens[6] != "tok-r2" {
		t.Fatalf("seventh send used %q, want second refreshed token", transport.tokens[6])
	}
}

func TestRun_JournalFailureDoesNotFailSend(t *testing.T) {
	store := newMemStore("a@x.com")
	journal := &fakeJournal{err: errx.Internal("timeline down")}
	d := newDispatcher(store, &fakeControl{}, journal, &fakeTransport{})

	if err := d.Run(context.Background(), &store.camp, sender, &fakeTokens{token: "tok"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.camp.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed, got %s", store.camp.Status)
	}
	if store.records[0].Status != campaign.RecordSent {
		t.Fatalf("record should be sent despite journal error, got %s", store.records[0].Status)
	}
}
