package arc

import "fmt"

// APIError is the problem-details body ARC returns with 4xx responses.
type APIError struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	TxID      string `json:"txid"`
	ExtraInfo string `json:"extraInfo"`
}

// Error implements the error interface.
func (a *APIError) Error() string {
	if a.IsEmpty() {
		return "ARC error: empty (or not in json) response"
	}
	return fmt.Sprintf("ARC error: %s <txID: %s> %s", a.Title, a.TxID, a.Detail)
}

// IsEmpty reports whether the response body could not be parsed as an ARC error.
func (a *APIError) IsEmpty() bool {
	return a == nil || a.Status == 0
}
