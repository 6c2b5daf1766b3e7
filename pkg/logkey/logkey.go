// Package logkey holds the structured logging keys shared across the service
// so log queries stay consistent.
package logkey

const (
	TraceID   = "TRACE ID"
	ERROR     = "ERROR"
	UserID    = "UserID"
	ProductID = "ProductID"
	OrderID   = "OrderID"
	CartID    = "CartID"
	Code      = "Code"
)
