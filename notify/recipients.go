package notify

import (
	"context"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const ownerCacheKeyPrefix = "give-reconciler::org_owner::v1::"

// RecipientDirectory resolves organization owner addresses, cached for the
// configured TTL when a cache service is set.
type RecipientDirectory struct {
	Organizations core.OrganizationStore
	Cache         repositorycache.CacheService
}

func NewRecipientDirectory(organizations core.OrganizationStore, cache repositorycache.CacheService) *RecipientDirectory {
	return &RecipientDirectory{Organizations: organizations, Cache: cache}
}

func OwnerCacheKey(organizationID string) string {
	return ownerCacheKeyPrefix + url.PathEscape(strings.TrimSpace(organizationID))
}

// OrganizationOwner returns "" with no error when the organization has no
// owner address on file.
func (r *RecipientDirectory) OrganizationOwner(ctx context.Context, organizationID string) (string, error) {
	organizationID = strings.TrimSpace(organizationID)
	if r == nil || r.Organizations == nil || organizationID == "" {
		return "", nil
	}
	fetch := func(ctx context.Context) (string, error) {
		org, err := r.Organizations.Get(ctx, organizationID)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(org.OwnerEmail), nil
	}
	if r.Cache == nil {
		return fetch(ctx)
	}
	return repositorycache.GetOrFetch(ctx, r.Cache, OwnerCacheKey(organizationID), fetch)
}

func (r *RecipientDirectory) Invalidate(ctx context.Context, organizationID string) error {
	if r == nil || r.Cache == nil {
		return nil
	}
	return r.Cache.Delete(ctx, OwnerCacheKey(organizationID))
}
