package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

func (r *Repository) CreatePost(ctx context.Context, authorID, body string) (types.Post, error) {
	if err := requireIDs(authorID); err != nil {
		return types.Post{}, err
	}
	post := types.Post{Id: r.newID(), AuthorId: authorID, Body: body, CreatedAt: r.timestamp()}
	if err := r.store.Write(ctx, postPath(post.Id), post); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *Repository) decodePosts(value any) ([]types.Post, error) {
	posts := decodeList[types.Post](value, r.logger)
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt != posts[j].CreatedAt {
			return posts[i].CreatedAt > posts[j].CreatedAt
		}
		return posts[i].Id > posts[j].Id
	})
	return posts, nil
}

// ListPosts returns the feed, newest first.
func (r *Repository) ListPosts(ctx context.Context) ([]types.Post, error) {
	value, err := r.store.Read(ctx, postsRoot)
	if err != nil {
		return nil, err
	}
	return r.decodePosts(value)
}

func (r *Repository) GetPost(ctx context.Context, id string) (types.Post, error) {
	if err := requireIDs(id); err != nil {
		return types.Post{}, err
	}
	value, err := r.store.Read(ctx, postPath(id))
	if err != nil {
		return types.Post{}, err
	}
	if value == nil {
		return types.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	var post types.Post
	if err := decode(value, &post); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, id string, update types.PostUpdate) (types.Post, error) {
	if _, err := r.GetPost(ctx, id); err != nil {
		return types.Post{}, err
	}
	fields := make(map[string]any)
	if update.Body != nil {
		fields["body"] = *update.Body
	}
	if update.AuthorId != nil {
		if err := requireIDs(*update.AuthorId); err != nil {
			return types.Post{}, err
		}
		fields["authorId"] = *update.AuthorId
	}
	if err := r.store.Patch(ctx, postPath(id), fields); err != nil {
		return types.Post{}, err
	}
	return r.GetPost(ctx, id)
}

func (r *Repository) DeletePost(ctx context.Context, id string) error {
	if err := requireIDs(id); err != nil {
		return err
	}
	return r.store.Delete(ctx, postPath(id))
}

func (r *Repository) LikePost(ctx context.Context, postID, userID string) error {
	return r.setLike(ctx, postID, userID, true)
}

func (r *Repository) UnlikePost(ctx context.Context, postID, userID string) error {
	return r.setLike(ctx, postID, userID, false)
}

func (r *Repository) setLike(ctx context.Context, postID, userID string, like bool) error {
	if err := requireIDs(userID); err != nil {
		return err
	}
	if _, err := r.GetPost(ctx, postID); err != nil {
		return err
	}
	var value any
	if like {
		value = true
	}
	return r.store.Write(ctx, join(postPath(postID), "likes", userID), value)
}

// SubscribeFeed delivers the whole feed, newest first, on every change.
func (r *Repository) SubscribeFeed(ctx context.Context, fn func([]types.Post)) (persistence.Unsubscribe, error) {
	return subscribe(ctx, r, postsRoot, r.decodePosts, fn)
}
