package identity

import (
	"context"

	"go.uber.org/zap"
)

// AddAddress stores a delivery address for the user. The user's first address
// becomes the default automatically; explicitly marking a later address
// default clears the previous one so at most one default exists.
func (e *Engine) AddAddress(ctx context.Context, userID int64, addr AddressRecord) (AddressRecord, error) {
	addr.ID = 0
	addr.UserID = userID

	has, err := e.addresses.HasAddresses(ctx, userID)
	if err != nil {
		return AddressRecord{}, err
	}
	if !has {
		addr.Default = true
	} else if addr.Default {
		if err := e.addresses.ClearDefault(ctx, userID); err != nil {
			return AddressRecord{}, err
		}
	}

	if err := e.addresses.CreateAddress(ctx, &addr); err != nil {
		return AddressRecord{}, err
	}

	e.log.Info("address added",
		zap.Int64("userId", userID), zap.Int64("addressId", addr.ID))
	return addr, nil
}

// ListAddresses returns all addresses belonging to the user.
func (e *Engine) ListAddresses(ctx context.Context, userID int64) ([]AddressRecord, error) {
	return e.addresses.AddressesByUser(ctx, userID)
}

// UpdateAddress replaces an address the user owns.
func (e *Engine) UpdateAddress(ctx context.Context, userID int64, addr AddressRecord) (AddressRecord, error) {
	existing, err := e.ownedAddress(ctx, userID, addr.ID)
	if err != nil {
		return AddressRecord{}, err
	}

	addr.UserID = userID
	if addr.Default && !existing.Default {
		if err := e.addresses.ClearDefault(ctx, userID); err != nil {
			return AddressRecord{}, err
		}
	}

	if err := e.addresses.UpdateAddress(ctx, &addr); err != nil {
		return AddressRecord{}, err
	}
	return addr, nil
}

// DeleteAddress removes an address the user owns.
func (e *Engine) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	if _, err := e.ownedAddress(ctx, userID, addressID); err != nil {
		return err
	}
	return e.addresses.DeleteAddress(ctx, addressID)
}

func (e *Engine) ownedAddress(ctx context.Context, userID, addressID int64) (AddressRecord, error) {
	addr, err := e.addresses.AddressByID(ctx, addressID)
	if err != nil {
		return AddressRecord{}, err
	}
	if addr.UserID != userID {
		e.log.Warn("address access by non-owner",
			zap.Int64("userId", userID), zap.Int64("addressId", addressID))
		return AddressRecord{}, ErrAddressForbidden
	}
	return addr, nil
}
