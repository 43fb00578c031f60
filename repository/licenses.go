package repository

import (
	"context"
	"fmt"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

// licenseState reads the license node of a user. Besides the {items, current} object it accepts the older
// shapes: a bare array of items, or an object of items keyed by index. canonical is false for those.
func (r *Repository) licenseState(ctx context.Context, userID string) (state types.LicenseState, canonical bool, err error) {
	if err := requireIDs(userID); err != nil {
		return types.LicenseState{}, false, err
	}
	value, err := r.store.Read(ctx, licensesPath(userID))
	if err != nil {
		return types.LicenseState{}, false, err
	}
	switch v := value.(type) {
	case nil:
		return types.LicenseState{}, false, nil
	case []any:
		return types.LicenseState{Items: decodeList[types.LicenseItem](v, r.logger)}, false, nil
	case map[string]any:
		if current, ok := v["current"].(string); ok {
			state.Current = current
		}
		if items, ok := v["items"]; ok {
			state.Items = decodeList[types.LicenseItem](items, r.logger)
			return state, true, nil
		}
		rest := make(map[string]any, len(v))
		for k, item := range v {
			if k == "current" {
				continue
			}
			if _, isObject := item.(map[string]any); isObject {
				rest[k] = item
			}
		}
		state.Items = decodeList[types.LicenseItem](rest, r.logger)
		return state, false, nil
	default:
		return types.LicenseState{}, false, fmt.Errorf("licenses %s: unexpected value of type %T", userID, value)
	}
}

// GenerateLicenses writes the catalog as the user's license items. An assigned license is kept.
func (r *Repository) GenerateLicenses(ctx context.Context, userID string) ([]types.LicenseItem, error) {
	state, _, err := r.licenseState(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Items = r.catalog.Items()
	if err := r.store.Write(ctx, licensesPath(userID), state); err != nil {
		return nil, err
	}
	return state.Items, nil
}

// ReadLicenses returns the license items of a user, or an empty list if none were generated.
func (r *Repository) ReadLicenses(ctx context.Context, userID string) ([]types.LicenseItem, error) {
	state, _, err := r.licenseState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state.Items == nil {
		return []types.LicenseItem{}, nil
	}
	return state.Items, nil
}

// GetAssignedLicense returns the license assigned to a user. Users without one get a random item of their
// list, which is stored; the list itself is generated from the catalog when missing.
func (r *Repository) GetAssignedLicense(ctx context.Context, userID string) (types.LicenseItem, error) {
	state, canonical, err := r.licenseState(ctx, userID)
	if err != nil {
		return types.LicenseItem{}, err
	}
	if item, ok := state.Assigned(); ok {
		return item, nil
	}
	if len(state.Items) == 0 {
		state.Items = r.catalog.Items()
		canonical = false
	}
	if len(state.Items) == 0 {
		return types.LicenseItem{}, fmt.Errorf("license catalog is empty: %w", ErrNotFound)
	}
	item := state.Items[r.pick(len(state.Items))]
	state.Current = item.Id
	if err := r.storeLicenseState(ctx, userID, state, canonical); err != nil {
		return types.LicenseItem{}, err
	}
	return item, nil
}

// SetUserLicense assigns a catalog license to a user. Assigning the same id again changes nothing.
func (r *Repository) SetUserLicense(ctx context.Context, userID, licenseID string) error {
	if _, ok := r.catalog.Find(licenseID); !ok {
		return invalidArgument("unknown license %q", licenseID)
	}
	state, canonical, err := r.licenseState(ctx, userID)
	if err != nil {
		return err
	}
	if len(state.Items) == 0 {
		state.Items = r.catalog.Items()
		canonical = false
	}
	state.Current = licenseID
	return r.storeLicenseState(ctx, userID, state, canonical)
}

// storeLicenseState only touches current when the stored node already has the canonical shape, and rewrites
// older shapes completely.
func (r *Repository) storeLicenseState(ctx context.Context, userID string, state types.LicenseState, canonical bool) error {
	if canonical {
		return r.store.Write(ctx, licensesPath(userID)+"/current", state.Current)
	}
	return r.store.Write(ctx, licensesPath(userID), state)
}
