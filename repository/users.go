package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

// ListUsers returns all users ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]types.User, error) {
	value, err := r.store.Read(ctx, usersRoot)
	if err != nil {
		return nil, err
	}
	users := decodeList[types.User](value, r.logger)
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Id < users[j].Id
	})
	return users, nil
}

// EnsureUser stores the complete user record, replacing whatever was stored before.
func (r *Repository) EnsureUser(ctx context.Context, user types.User) error {
	if err := requireIDs(user.Id); err != nil {
		return err
	}
	if user.Role == "" {
		user.Role = types.RolePlayer
	}
	if !user.Role.Valid() {
		return invalidArgument("unknown role %q", user.Role)
	}
	return r.store.Write(ctx, userPath(user.Id), user)
}

func (r *Repository) GetUser(ctx context.Context, id string) (types.User, error) {
	if err := requireIDs(id); err != nil {
		return types.User{}, err
	}
	value, err := r.store.Read(ctx, userPath(id))
	if err != nil {
		return types.User{}, err
	}
	if value == nil {
		return types.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	var user types.User
	if err := decode(value, &user); err != nil {
		return types.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	if user.Id == "" {
		user.Id = id
	}
	return user, nil
}

// UpdateUser applies a profile edit to an existing user.
func (r *Repository) UpdateUser(ctx context.Context, id string, update types.UserUpdate) (types.User, error) {
	if _, err := r.GetUser(ctx, id); err != nil {
		return types.User{}, err
	}
	fields := make(map[string]any)
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.AvatarUrl != nil {
		if *update.AvatarUrl == "" {
			fields["avatarUrl"] = nil
		} else {
			fields["avatarUrl"] = *update.AvatarUrl
		}
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return types.User{}, invalidArgument("unknown role %q", *update.Role)
		}
		fields["role"] = string(*update.Role)
	}
	if err := r.store.Patch(ctx, userPath(id), fields); err != nil {
		return types.User{}, err
	}
	return r.GetUser(ctx, id)
}

// IsUserGM checks the per-user flag first. Only if it is absent the legacy gm_tags node is consulted, which may
// be a comma separated string, an array or an object of ids.
func (r *Repository) IsUserGM(ctx context.Context, id string) (bool, error) {
	if err := requireIDs(id); err != nil {
		return false, err
	}
	flag, err := r.store.Read(ctx, gmUserPath(id))
	if err != nil {
		return false, err
	}
	if flag != nil {
		return truthy(flag), nil
	}
	tags, err := r.store.Read(ctx, gmTagsPath)
	if err != nil {
		return false, err
	}
	switch t := tags.(type) {
	case string:
		for _, tag := range strings.Split(t, ",") {
			if strings.TrimSpace(tag) == id {
				return true, nil
			}
		}
	case []any, map[string]any:
		for _, tag := range presenceKeys(t) {
			if tag == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// SetUserGM writes the per-user flag, which takes precedence over gm_tags.
func (r *Repository) SetUserGM(ctx context.Context, id string, gm bool) error {
	if err := requireIDs(id); err != nil {
		return err
	}
	return r.store.Write(ctx, gmUserPath(id), gm)
}

// CreateNPC creates a user with the npc role together with its stats and licenses. An empty name is replaced by
// a generated one.
func (r *Repository) CreateNPC(ctx context.Context, name, avatarURL string) (types.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.newName()
	}
	user := types.User{Id: r.newID(), Name: name, AvatarUrl: avatarURL, Role: types.RoleNPC}
	if err := r.EnsureUser(ctx, user); err != nil {
		return types.User{}, err
	}
	if _, err := r.GetOrCreateStats(ctx, user.Id); err != nil {
		return types.User{}, err
	}
	if _, err := r.GenerateLicenses(ctx, user.Id); err != nil {
		return types.User{}, err
	}
	return user, nil
}
