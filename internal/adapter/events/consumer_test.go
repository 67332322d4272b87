package events

import (
	"context"
	"testing"

	"github.com/danieliser/edd-utility-functions/internal/core/domain"
)

type fakeInvalidator struct {
	purchaseCalls []PurchaseCompletedEvent
	statusCalls   []PaymentStatusChangedEvent
}

func (f *fakeInvalidator) HandlePurchaseComplete(ctx context.Context, paymentID, customerID int64) {
	f.purchaseCalls = append(f.purchaseCalls, PurchaseCompletedEvent{PaymentID: paymentID, CustomerID: customerID})
}

func (f *fakeInvalidator) HandlePaymentStatusChange(ctx context.Context, paymentID int64, oldStatus, newStatus domain.PaymentStatus) {
	f.statusCalls = append(f.statusCalls, PaymentStatusChangedEvent{
		PaymentID: paymentID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
	})
}

func TestDispatch_PurchaseCompleted(t *testing.T) {
	fake := &fakeInvalidator{}
	consumer := NewConsumer(nil, fake, nil)

	consumer.dispatch(context.Background(), PurchaseCompletedChannel, []byte(`{"payment_id":9001,"customer_id":7}`))

	if len(fake.purchaseCalls) != 1 {
		t.Fatalf("expected 1 purchase call, got %d", len(fake.purchaseCalls))
	}
	if got := fake.purchaseCalls[0]; got.PaymentID != 9001 || got.CustomerID != 7 {
		t.Errorf("unexpected call args: %+v", got)
	}
	if len(fake.statusCalls) != 0 {
		t.Errorf("expected no status calls, got %d", len(fake.statusCalls))
	}
}

func TestDispatch_PaymentStatusChanged(t *testing.T) {
	fake := &fakeInvalidator{}
	consumer := NewConsumer(nil, fake, nil)

	consumer.dispatch(context.Background(), PaymentStatusChangedChannel,
		[]byte(`{"payment_id":9001,"old_status":"complete","new_status":"refunded"}`))

	if len(fake.statusCalls) != 1 {
		t.Fatalf("expected 1 status call, got %d", len(fake.statusCalls))
	}
	got := fake.statusCalls[0]
	if got.PaymentID != 9001 || got.OldStatus != "complete" || got.NewStatus != "refunded" {
		t.Errorf("unexpected call args: %+v", got)
	}
}

func TestDispatch_MalformedPayloadSkipped(t *testing.T) {
	fake := &fakeInvalidator{}
	consumer := NewConsumer(nil, fake, nil)

	ctx := context.Background()
	consumer.dispatch(ctx, PurchaseCompletedChannel, []byte(`not json`))
	consumer.dispatch(ctx, PaymentStatusChangedChannel, []byte(`{`))

	if len(fake.purchaseCalls) != 0 || len(fake.statusCalls) != 0 {
		t.Error("expected malformed payloads to be dropped")
	}
}

func TestDispatch_UnknownChannelIgnored(t *testing.T) {
	fake := &fakeInvalidator{}
	consumer := NewConsumer(nil, fake, nil)

	consumer.dispatch(context.Background(), "edd.something_else", []byte(`{"payment_id":1}`))

	if len(fake.purchaseCalls) != 0 || len(fake.statusCalls) != 0 {
		t.Error("expected unknown channel to be ignored")
	}
}
