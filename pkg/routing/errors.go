package routing

import "errors"

// ErrNoServersAvailable is returned when a strategy is given an empty pool
// or every candidate server is down.
var ErrNoServersAvailable = errors.New("routing: no servers available")
