package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/metrics"
)

// Dispatcher delivers receipts for committed sales. Delivery never affects
// the sale it describes.
type Dispatcher struct {
	sender   Sender
	pharmacy string
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

func NewDispatcher(sender Sender, pharmacy string, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		sender:   sender,
		pharmacy: pharmacy,
		timeout:  timeout,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Send renders and delivers the receipt, returning ErrDeliveryFailed on any
// failure.
func (d *Dispatcher) Send(ctx context.Context, sale domain.Sale) error {
	if sale.CustomerPhone == "" {
		d.count("skipped")
		return fmt.Errorf("sale %d has no customer phone: %w", sale.ID, domain.ErrDeliveryFailed)
	}
	to, err := NormalizePhone(sale.CustomerPhone)
	if err != nil {
		d.count("failed")
		return fmt.Errorf("%v: %w", err, domain.ErrDeliveryFailed)
	}
	if err := d.sender.Send(ctx, to, Render(d.pharmacy, sale, d.now())); err != nil {
		d.count("failed")
		if errors.Is(err, domain.ErrDeliveryFailed) {
			return err
		}
		return fmt.Errorf("%v: %w", err, domain.ErrDeliveryFailed)
	}
	d.count("sent")
	return nil
}

// Dispatch sends in the background under its own timeout. Sales without a
// phone number are skipped.
func (d *Dispatcher) Dispatch(sale domain.Sale) {
	if sale.CustomerPhone == "" {
		d.count("skipped")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Send(ctx, sale); err != nil {
			d.log.Warn("receipt_delivery_failed", zap.Int64("sale_id", sale.ID), zap.Error(err))
			return
		}
		d.log.Debug("receipt_sent", zap.Int64("sale_id", sale.ID))
	}()
}

// Wait blocks until every in-flight Dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) count(result string) {
	d.metrics.ReceiptDeliveries.WithLabelValues(result).Inc()
}
