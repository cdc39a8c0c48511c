package service

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically re-reads every active order so the lazy status
// corrections apply even when nobody is polling. It reuses OrderService.Get,
// which persists any correction with a compare-and-set.
type Sweeper struct {
	orders   *OrderService
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval defaults to 30s.
func NewSweeper(orders *OrderService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{orders: orders, interval: interval}
}

// Run ticks until ctx is canceled. Sweep failures are logged, never fatal.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				log.Printf("ERROR: status sweep: %v", err)
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	orders, err := s.orders.store.ListActiveOrders(ctx)
	if err != nil {
		return err
	}
	for _, order := range orders {
		if _, err := s.orders.Get(ctx, order.ID); err != nil {
			log.Printf("ERROR: sweep order %s: %v", order.ID, err)
		}
	}
	return nil
}
