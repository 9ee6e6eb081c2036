package orderbook

import "errors"

// ErrOrderNotFound is returned by CancelOrder when order_id is unknown to
// the book or already terminal — the cancel-for-unknown-order StateError
// the session turns into an Order Cancel Reject "Order not found".
var ErrOrderNotFound = errors.New("order not found")
