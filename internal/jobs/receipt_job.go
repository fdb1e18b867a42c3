package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/queue"
)

// DonationReceiptJobType is the job type for donation receipt notifications
const DonationReceiptJobType queue.JobType = "donation_receipt"

// DonationReceiptPayload carries what the receipt needs; the payment record
// itself is not re-read by the worker
type DonationReceiptPayload struct {
	PaymentID uuid.UUID `json:"payment_id"`
	Reference string    `json:"reference"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
}

// QueueNotifier implements the payment service's Notifier by enqueueing a
// receipt job, keeping the donation path free of delivery latency
type QueueNotifier struct {
	queue queue.Queue
}

// NewQueueNotifier creates a queue-backed receipt notifier
func NewQueueNotifier(q queue.Queue) *QueueNotifier {
	return &QueueNotifier{queue: q}
}

// NotifyDonationReceipt enqueues a receipt notification for a successful payment
func (n *QueueNotifier) NotifyDonationReceipt(ctx context.Context, p *models.Payment) error {
	if p.Email == "" {
		return nil
	}
	_, err := n.queue.Enqueue(ctx, DonationReceiptJobType, DonationReceiptPayload{
		PaymentID: p.ID,
		Reference: p.Reference,
		Name:      p.Name,
		Email:     p.Email,
		Amount:    p.Amount,
		Currency:  p.Currency,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue donation receipt: %w", err)
	}
	return nil
}

// RegisterReceiptJobHandler registers the receipt worker. Delivery is a log
// line for now; the mail integration plugs in here.
func RegisterReceiptJobHandler(q *queue.RedisQueue) {
	q.RegisterHandler(DonationReceiptJobType, func(ctx context.Context, job queue.Job) error {
		var payload DonationReceiptPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal receipt payload: %w", err)
		}

		log.Printf("sending donation receipt for %s to %s (%.2f %s)",
			payload.Reference, payload.Email, payload.Amount, payload.Currency)
		return nil
	})
}
