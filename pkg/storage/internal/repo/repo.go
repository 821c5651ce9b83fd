// Package repo implements the database access layer of the storage provider.
package repo

import (
	"gorm.io/gorm"
)

// Repositories aggregates all repositories sharing one GORM connection.
type Repositories struct {
	*Migrator
	*Settings
	*Users
	*Baskets
	*Transactions
	*Outputs
	*Proven
	*Certificates
	*Commissions
	*MonitorEvents
	*SyncStates
}

// NewRepositories wires all repositories over the given connection.
func NewRepositories(db *gorm.DB) *Repositories {
	repositories := &Repositories{
		Migrator:      NewMigrator(db),
		Settings:      NewSettings(db),
		Baskets:       NewBaskets(db),
		Transactions:  NewTransactions(db),
		Outputs:       NewOutputs(db),
		Proven:        NewProven(db),
		Certificates:  NewCertificates(db),
		Commissions:   NewCommissions(db),
		MonitorEvents: NewMonitorEvents(db),
		SyncStates:    NewSyncStates(db),
	}
	repositories.Users = NewUsers(db, repositories.Baskets)

	return repositories
}
