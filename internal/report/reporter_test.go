package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/honeypot/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func completedSession() *domain.Session {
	s := domain.NewSession("sess-42", time.Now(), nil)
	s.Append(domain.ConversationEntry{Sender: domain.SenderCounterparty, Text: "pay to fraud@upi", Timestamp: time.Now()})
	s.ScamDetected = true
	s.Intelligence = domain.ExtractedIntelligence{UPIIDs: []string{"fraud@upi"}}
	s.AgentNotes = "Category: upi_scam."
	s.Completed = true
	return s
}

func TestReportSuccessFirstAttempt(t *testing.T) {
	var got map[string]any
	var deliveryID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		deliveryID = r.Header.Get("X-Delivery-ID")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	r := New(srv.URL, WithSleep(rec.sleep))
	require.True(t, r.Report(context.Background(), completedSession()))

	assert.Empty(t, rec.delays)
	_, err := uuid.Parse(deliveryID)
	assert.NoError(t, err)

	assert.Equal(t, "sess-42", got["sessionId"])
	assert.Equal(t, "sess-42", got["sessionld"])
	assert.Equal(t, true, got["scamDetected"])
	assert.Equal(t, float64(1), got["totalMessagesExchanged"])
	assert.Equal(t, "Category: upi_scam.", got["agentNotes"])

	intel, ok := got["extractedIntelligence"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"fraud@upi"}, intel["upiIds"])
	assert.Equal(t, []any{}, intel["bankAccounts"])
}

func TestReportRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	r := New(srv.URL, WithSleep(rec.sleep))
	require.True(t, r.Report(context.Background(), completedSession()))

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestReportExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	ids := map[string]struct{}{}
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		mu.Lock()
		ids[r.Header.Get("X-Delivery-ID")] = struct{}{}
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	r := New(srv.URL, WithSleep(rec.sleep))
	assert.False(t, r.Report(context.Background(), completedSession()))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.Len(t, ids, 1, "every attempt carries the same delivery id")
}

func TestReportTransportErrorIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &sleepRecorder{}
	r := New(url, WithSleep(rec.sleep), WithTimeout(time.Second))
	assert.False(t, r.Report(context.Background(), completedSession()))
	assert.Len(t, rec.delays, 2)
}

func TestReportStopsWhenContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := New(srv.URL, WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))
	assert.False(t, r.Report(ctx, completedSession()))
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestBudgetCoversEveryAttempt(t *testing.T) {
	assert.Equal(t, 18*time.Second, New("http://example.invalid").Budget())

	r := New("http://example.invalid", WithTimeout(2*time.Second), WithBackoff(4, 500*time.Millisecond))
	assert.Equal(t, 8*time.Second+500*time.Millisecond+time.Second+2*time.Second, r.Budget())
}
