// Package notify defines the outbound notification contract. Every send
// is fire-and-forget: failures are logged by the implementation and
// never propagated to the caller.
package notify

import "go.uber.org/zap"

type Sender interface {
	SendLowStockAlert(productID uint)
	SendOrderConfirmation(orderID uint)
	SendOrderStatusChanged(orderID uint)
}

// LogSender is the default Sender; it records each notification through
// the structured logger. A real mail/SMS gateway implements the same
// interface.
type LogSender struct {
	Log *zap.SugaredLogger
}

func NewLogSender(log *zap.SugaredLogger) *LogSender {
	return &LogSender{Log: log}
}

func (s *LogSender) SendLowStockAlert(productID uint) {
	s.Log.Infow("low stock alert", "product_id", productID)
}

func (s *LogSender) SendOrderConfirmation(orderID uint) {
	s.Log.Infow("order confirmation sent", "order_id", orderID)
}

func (s *LogSender) SendOrderStatusChanged(orderID uint) {
	s.Log.Infow("order status change sent", "order_id", orderID)
}
