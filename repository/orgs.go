package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

func (r *Repository) ListOrganizations(ctx context.Context) ([]types.Organization, error) {
	value, err := r.store.Read(ctx, orgsRoot)
	if err != nil {
		return nil, err
	}
	orgs := decodeList[types.Organization](value, r.logger)
	for i := range orgs {
		if orgs[i].Members == nil {
			orgs[i].Members = types.NewPresenceSet()
		}
	}
	sort.SliceStable(orgs, func(i, j int) bool {
		if orgs[i].Name != orgs[j].Name {
			return orgs[i].Name < orgs[j].Name
		}
		return orgs[i].Id < orgs[j].Id
	})
	return orgs, nil
}

// CreateOrganization creates an empty organization and its group channel "Org: <name>". The organization is
// created even if the channel cannot be.
func (r *Repository) CreateOrganization(ctx context.Context, name string) (types.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Organization{}, invalidArgument("organization name is empty")
	}
	org := types.Organization{Id: r.newID(), Name: name, Members: types.NewPresenceSet()}
	channel, err := r.CreateChannel(ctx, types.Channel{Type: types.ChannelGroup, Name: "Org: " + name})
	if err != nil {
		r.logger.Warn("could not create organization channel", "org", org.Id, "error", err)
	} else {
		org.ChannelId = channel.Id
	}
	if err := r.store.Write(ctx, orgPath(org.Id), org); err != nil {
		return types.Organization{}, err
	}
	return org, nil
}

func (r *Repository) GetOrganization(ctx context.Context, id string) (types.Organization, error) {
	if err := requireIDs(id); err != nil {
		return types.Organization{}, err
	}
	value, err := r.store.Read(ctx, orgPath(id))
	if err != nil {
		return types.Organization{}, err
	}
	if value == nil {
		return types.Organization{}, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	var org types.Organization
	if err := decode(value, &org); err != nil {
		return types.Organization{}, err
	}
	if org.Members == nil {
		org.Members = types.NewPresenceSet()
	}
	return org, nil
}

// JoinOrganization adds a user to an organization and to its channel. A user who is a member of a different
// organization is rejected with ErrAlreadyInOrganization. The check and the write are separate steps, so two
// concurrent joins can still both succeed.
func (r *Repository) JoinOrganization(ctx context.Context, userID, orgID string) error {
	if err := requireIDs(userID, orgID); err != nil {
		return err
	}
	orgs, err := r.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	var target *types.Organization
	for i, o := range orgs {
		if o.Members.Has(userID) && o.Id != orgID {
			return fmt.Errorf("join %s: member of %q: %w", orgID, o.Name, ErrAlreadyInOrganization)
		}
		if o.Id == orgID {
			target = &orgs[i]
		}
	}
	if target == nil {
		return fmt.Errorf("organization %s: %w", orgID, ErrNotFound)
	}
	if err := r.store.Write(ctx, join(orgPath(orgID), "members", userID), true); err != nil {
		return err
	}
	if target.ChannelId != "" {
		if _, err := r.getChannel(ctx, target.ChannelId); err == nil {
			if err := r.store.Write(ctx, join(channelPath(target.ChannelId), "members", userID), true); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return r.setUserOrg(ctx, userID, orgID)
}

// LeaveOrganization removes a user from the organization they belong to, if any.
func (r *Repository) LeaveOrganization(ctx context.Context, userID string) error {
	if err := requireIDs(userID); err != nil {
		return err
	}
	orgs, err := r.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	for _, o := range orgs {
		if !o.Members.Has(userID) {
			continue
		}
		if err := r.store.Delete(ctx, join(orgPath(o.Id), "members", userID)); err != nil {
			return err
		}
		if o.ChannelId != "" {
			if err := r.store.Delete(ctx, join(channelPath(o.ChannelId), "members", userID)); err != nil {
				return err
			}
		}
	}
	return r.setUserOrg(ctx, userID, "")
}

// setUserOrg records the organization on the user record, if the user has one.
func (r *Repository) setUserOrg(ctx context.Context, userID, orgID string) error {
	existing, err := r.store.Read(ctx, join(userPath(userID), "id"))
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	var value any
	if orgID != "" {
		value = orgID
	}
	return r.store.Write(ctx, join(userPath(userID), "orgId"), value)
}
