package models

// All returns every model migrated by the storage provider, in dependency order.
func All() []any {
	return []any{
		&User{},
		&OutputBasket{},
		&Transaction{},
		&Label{},
		&Output{},
		&Tag{},
		&ProvenTx{},
		&ProvenTxReq{},
		&Certificate{},
		&CertificateField{},
		&Commission{},
		&MonitorEvent{},
		&SyncState{},
		&Setting{},
	}
}
