package models

import (
	"github.com/garmentflow/backend/internal/domain/identity"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	AggregateModel
	UID           string                 `gorm:"type:varchar(128);not null;uniqueIndex"`
	Email         string                 `gorm:"type:varchar(320);not null;uniqueIndex"`
	Name          string                 `gorm:"type:varchar(200)"`
	Role          identity.Role          `gorm:"type:varchar(20);not null;default:'buyer';index"`
	Status        identity.AccountStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	SuspendReason string                 `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *identity.Account {
	return &identity.Account{
		BaseAggregateRoot: m.root(),
		UID:               m.UID,
		Email:             m.Email,
		Name:              m.Name,
		Role:              m.Role,
		Status:            m.Status,
		SuspendReason:     m.SuspendReason,
	}
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *identity.Account) {
	m.AggregateModel = aggregateOf(a.BaseAggregateRoot)
	m.UID = a.UID
	m.Email = a.Email
	m.Name = a.Name
	m.Role = a.Role
	m.Status = a.Status
	m.SuspendReason = a.SuspendReason
}

// AccountModelFromDomain creates a new persistence model from a domain Account entity.
func AccountModelFromDomain(a *identity.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}
