package entity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// User represents an address that has ever owned a position.
type User struct {
	ID      string         `json:"id"`
	Address common.Address `json:"address"`
	// TotalPositions is the net count of positions currently owned. It is a plain
	// counter and is not clamped at zero.
	TotalPositions int64 `json:"totalPositions"`
	CreatedAt      int64 `json:"createdAt"`
}

// NewUser creates a new User entity with validation.
func NewUser(address common.Address, timestamp int64) (*User, error) {
	if address == (common.Address{}) {
		return nil, fmt.Errorf("address must not be the zero address")
	}
	if timestamp < 0 {
		return nil, fmt.Errorf("timestamp must be non-negative, got %d", timestamp)
	}
	return &User{
		ID:        UserID(address),
		Address:   address,
		CreatedAt: timestamp,
	}, nil
}

func (u *User) EntityKind() Kind { return KindUser }
func (u *User) EntityID() string { return u.ID }

// AddressHex returns the address as a hex string with 0x prefix.
func (u *User) AddressHex() string {
	return u.Address.Hex()
}
