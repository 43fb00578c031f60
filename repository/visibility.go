package repository

import (
	"context"

	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

// SetUserVisibility stores the visibility of every feature area for a user. Missing areas are stored as
// visible.
func (r *Repository) SetUserVisibility(ctx context.Context, userID string, visibility types.Visibility) error {
	if err := requireIDs(userID); err != nil {
		return err
	}
	for area := range visibility {
		if !types.IsFeatureArea(area) {
			return invalidArgument("unknown feature area %q", area)
		}
	}
	return r.store.Write(ctx, visibilityPath(userID), visibility.Resolved())
}

// SetAreaVisibility changes a single area and leaves the others as they are.
func (r *Repository) SetAreaVisibility(ctx context.Context, userID, area string, visible bool) error {
	current, err := r.GetUserVisibility(ctx, userID)
	if err != nil {
		return err
	}
	next := current.Resolved()
	next[area] = visible
	return r.SetUserVisibility(ctx, userID, next)
}

func decodeVisibility(value any) (types.Visibility, error) {
	v := types.Visibility{}
	if m, ok := value.(map[string]any); ok {
		for area, shown := range m {
			if b, ok := shown.(bool); ok {
				v[area] = b
			}
		}
	}
	return v, nil
}

// GetUserVisibility returns what is stored for the user. Absent or partial maps are fine: areas without an
// entry are visible.
func (r *Repository) GetUserVisibility(ctx context.Context, userID string) (types.Visibility, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	value, err := r.store.Read(ctx, visibilityPath(userID))
	if err != nil {
		return nil, err
	}
	return decodeVisibility(value)
}

func (r *Repository) SubscribeUserVisibility(ctx context.Context, userID string, fn func(types.Visibility)) (persistence.Unsubscribe, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return subscribe(ctx, r, visibilityPath(userID), decodeVisibility, fn)
}
