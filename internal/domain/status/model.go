package status

// Definition is one lifecycle stage of the status catalog. OrderIndex gives
// the canonical display order.
type Definition struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Color      string `json:"color"`
	OrderIndex int    `json:"order_index"`
}
