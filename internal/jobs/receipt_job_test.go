package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/queue"
)

type capturingQueue struct {
	jobType queue.JobType
	payload interface{}
	calls   int
	err     error
}

func (q *capturingQueue) Enqueue(ctx context.Context, jobType queue.JobType, payload interface{}) (uuid.UUID, error) {
	q.calls++
	q.jobType = jobType
	q.payload = payload
	return uuid.New(), q.err
}

func TestQueueNotifier(t *testing.T) {
	paymentRecord := &models.Payment{
		ID:        uuid.New(),
		Reference: "DON_20260828_abc",
		Name:      "Ayaan",
		Email:     "ayaan@example.com",
		Amount:    25,
		Currency:  "USD",
	}

	t.Run("enqueues receipt job", func(t *testing.T) {
		q := &capturingQueue{}
		notifier := NewQueueNotifier(q)

		require.NoError(t, notifier.NotifyDonationReceipt(context.Background(), paymentRecord))

		assert.Equal(t, 1, q.calls)
		assert.Equal(t, DonationReceiptJobType, q.jobType)

		payload, ok := q.payload.(DonationReceiptPayload)
		require.True(t, ok)
		assert.Equal(t, paymentRecord.ID, payload.PaymentID)
		assert.Equal(t, "DON_20260828_abc", payload.Reference)
		assert.Equal(t, "ayaan@example.com", payload.Email)
		assert.Equal(t, 25.0, payload.Amount)
	})

	t.Run("skips donations without an email", func(t *testing.T) {
		q := &capturingQueue{}
		notifier := NewQueueNotifier(q)

		anonymous := *paymentRecord
		anonymous.Email = ""
		require.NoError(t, notifier.NotifyDonationReceipt(context.Background(), &anonymous))
		assert.Equal(t, 0, q.calls)
	})

	t.Run("payload round-trips through the job envelope", func(t *testing.T) {
		q := &capturingQueue{}
		notifier := NewQueueNotifier(q)
		require.NoError(t, notifier.NotifyDonationReceipt(context.Background(), paymentRecord))

		raw, err := json.Marshal(q.payload)
		require.NoError(t, err)

		var decoded DonationReceiptPayload
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, paymentRecord.Reference, decoded.Reference)
	})
}
