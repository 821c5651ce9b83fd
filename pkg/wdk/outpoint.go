package wdk

// OutPoint identifies an output as a txid and output index pair.
type OutPoint struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}
