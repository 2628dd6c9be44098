package response_models

type ReconcileItemError struct {
	SubscriptionID string `json:"subscription_id"`
	Error          string `json:"error"`
}

// ReconcileReport is what operators see after a sweep: per-item
// failures are collected, never allowed to abort the batch.
type ReconcileReport struct {
	Processed  int                  `json:"processed"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Errors     []ReconcileItemError `json:"errors,omitempty"`
}
