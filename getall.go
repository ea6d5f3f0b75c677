package rets

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pior/rets/metadata"
)

// The GetAll* operations are all-or-nothing: the first failing request fails
// the whole operation and partial results are discarded.
//
// In FanOut mode they run in two phases. The parents are enumerated first
// (resources, then classes or lookups), then every child is fetched with its
// own request, at most FanOutConcurrency at a time. Results come back in
// enumeration order whatever order the requests complete in.
//
// In Bulk mode a single request with the "*" ID is sent and every element
// of the reply is projected, in document order.

// GetAllClass returns the classes of every resource.
func (c *Client) GetAllClass(ctx context.Context) ([]*metadata.Classes, error) {
	all, err := c.getAllClass(ctx)
	c.publish(KindAllClass, all, err)
	return all, err
}

func (c *Client) getAllClass(ctx context.Context) ([]*metadata.Classes, error) {
	if c.getAllMode == Bulk {
		return fetchEach(ctx, c, metadata.TypeClass, metadata.IDAll, metadata.ProjectClasses)
	}

	resources, err := c.getResources(ctx)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, c.fanOutConcurrency, resources.IDs(), c.getClass)
}

// GetAllTable returns the fields of every class of every resource.
func (c *Client) GetAllTable(ctx context.Context) ([]*metadata.Table, error) {
	all, err := c.getAllTable(ctx)
	c.publish(KindAllTable, all, err)
	return all, err
}

func (c *Client) getAllTable(ctx context.Context) ([]*metadata.Table, error) {
	if c.getAllMode == Bulk {
		return fetchEach(ctx, c, metadata.TypeTable, metadata.IDAll, metadata.ProjectTable)
	}

	classes, err := c.getAllClass(ctx)
	if err != nil {
		return nil, err
	}

	var pairs []idPair
	for _, cls := range classes {
		for _, name := range cls.Names() {
			pairs = append(pairs, idPair{cls.Resource, name})
		}
	}
	return fanOut(ctx, c.fanOutConcurrency, pairs, func(ctx context.Context, p idPair) (*metadata.Table, error) {
		return c.getTable(ctx, p.parent, p.child)
	})
}

// GetAllLookups returns the lookups of every resource.
func (c *Client) GetAllLookups(ctx context.Context) ([]*metadata.Lookups, error) {
	all, err := c.getAllLookups(ctx)
	c.publish(KindAllLookups, all, err)
	return all, err
}

func (c *Client) getAllLookups(ctx context.Context) ([]*metadata.Lookups, error) {
	if c.getAllMode == Bulk {
		return fetchEach(ctx, c, metadata.TypeLookup, metadata.IDAll, metadata.ProjectLookups)
	}

	resources, err := c.getResources(ctx)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, c.fanOutConcurrency, resources.IDs(), c.getLookups)
}

// GetAllLookupTypes returns the values of every lookup of every resource.
func (c *Client) GetAllLookupTypes(ctx context.Context) ([]*metadata.LookupTypes, error) {
	all, err := c.getAllLookupTypes(ctx)
	c.publish(KindAllLookupTypes, all, err)
	return all, err
}

func (c *Client) getAllLookupTypes(ctx context.Context) ([]*metadata.LookupTypes, error) {
	if c.getAllMode == Bulk {
		return fetchEach(ctx, c, metadata.TypeLookupType, metadata.IDAll, metadata.ProjectLookupTypes)
	}

	lookups, err := c.getAllLookups(ctx)
	if err != nil {
		return nil, err
	}

	var pairs []idPair
	for _, l := range lookups {
		for _, lk := range l.Lookups {
			pairs = append(pairs, idPair{l.Resource, lk.LookupName})
		}
	}
	return fanOut(ctx, c.fanOutConcurrency, pairs, func(ctx context.Context, p idPair) (*metadata.LookupTypes, error) {
		return c.getLookupTypes(ctx, p.parent, p.child)
	})
}

// idPair identifies a child entity: resource+class or resource+lookup.
type idPair struct {
	parent string
	child  string
}

// fanOut calls fetch for every key, at most limit at a time, and returns the
// results in key order. The first error cancels the remaining calls.
func fanOut[K, T any](ctx context.Context, limit int, keys []K, fetch func(context.Context, K) (T, error)) ([]T, error) {
	results := make([]T, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, key := range keys {
		g.Go(func() error {
			v, err := fetch(ctx, key)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
