package rets

import (
	"context"
	"errors"
	"fmt"

	"github.com/pior/rets/metadata"
)

// ErrEmptyID is returned when a required metadata ID part (resource, class,
// lookup) is empty. No request is sent.
var ErrEmptyID = errors.New("rets: empty metadata ID")

// GetMetadata runs a GetMetadata transaction and returns the reply body
// untouched, once its ReplyCode has been checked. An empty format means
// COMPACT.
func (c *Client) GetMetadata(ctx context.Context, typ metadata.Type, id string, format metadata.Format) ([]byte, error) {
	req := metadata.NewRequest(typ, id)
	if format != "" {
		req.Format = format
	}
	_, body, err := c.fetch(ctx, req)
	c.publish(KindMetadata, body, err)
	return body, err
}

// GetSystem returns the METADATA-SYSTEM record.
func (c *Client) GetSystem(ctx context.Context) (*metadata.System, error) {
	sys, err := fetchOne(ctx, c, metadata.TypeSystem, metadata.IDRoot, metadata.ProjectSystem)
	c.publish(KindSystem, sys, err)
	return sys, err
}

// GetResources returns every resource of the system.
func (c *Client) GetResources(ctx context.Context) (*metadata.Resources, error) {
	res, err := c.getResources(ctx)
	c.publish(KindResources, res, err)
	return res, err
}

func (c *Client) getResources(ctx context.Context) (*metadata.Resources, error) {
	return fetchOne(ctx, c, metadata.TypeResource, metadata.IDRoot, metadata.ProjectResources)
}

// GetClass returns the classes of a resource.
func (c *Client) GetClass(ctx context.Context, resource string) (*metadata.Classes, error) {
	classes, err := c.getClass(ctx, resource)
	c.publish(KindClass, classes, err)
	return classes, err
}

func (c *Client) getClass(ctx context.Context, resource string) (*metadata.Classes, error) {
	id, err := metadataID("resource", resource)
	if err != nil {
		return nil, err
	}
	return fetchOne(ctx, c, metadata.TypeClass, id, metadata.ProjectClasses)
}

// GetTable returns the fields of a resource class.
func (c *Client) GetTable(ctx context.Context, resource, class string) (*metadata.Table, error) {
	table, err := c.getTable(ctx, resource, class)
	c.publish(KindTable, table, err)
	return table, err
}

func (c *Client) getTable(ctx context.Context, resource, class string) (*metadata.Table, error) {
	id, err := metadataID("resource", resource, "class", class)
	if err != nil {
		return nil, err
	}
	return fetchOne(ctx, c, metadata.TypeTable, id, metadata.ProjectTable)
}

// GetLookups returns the lookups of a resource.
func (c *Client) GetLookups(ctx context.Context, resource string) (*metadata.Lookups, error) {
	lookups, err := c.getLookups(ctx, resource)
	c.publish(KindLookups, lookups, err)
	return lookups, err
}

func (c *Client) getLookups(ctx context.Context, resource string) (*metadata.Lookups, error) {
	id, err := metadataID("resource", resource)
	if err != nil {
		return nil, err
	}
	return fetchOne(ctx, c, metadata.TypeLookup, id, metadata.ProjectLookups)
}

// GetLookupTypes returns the values of a lookup.
func (c *Client) GetLookupTypes(ctx context.Context, resource, lookup string) (*metadata.LookupTypes, error) {
	types, err := c.getLookupTypes(ctx, resource, lookup)
	c.publish(KindLookupTypes, types, err)
	return types, err
}

func (c *Client) getLookupTypes(ctx context.Context, resource, lookup string) (*metadata.LookupTypes, error) {
	id, err := metadataID("resource", resource, "lookup", lookup)
	if err != nil {
		return nil, err
	}
	return fetchOne(ctx, c, metadata.TypeLookupType, id, metadata.ProjectLookupTypes)
}

// GetObjectMeta returns the media object types of a resource.
func (c *Client) GetObjectMeta(ctx context.Context, resource string) (*metadata.Objects, error) {
	objects, err := c.getObjectMeta(ctx, resource)
	c.publish(KindObject, objects, err)
	return objects, err
}

func (c *Client) getObjectMeta(ctx context.Context, resource string) (*metadata.Objects, error) {
	id, err := metadataID("resource", resource)
	if err != nil {
		return nil, err
	}
	return fetchOne(ctx, c, metadata.TypeObject, id, metadata.ProjectObjects)
}

// metadataID joins name/value pairs into a metadata ID, rejecting empty
// values.
func metadataID(pairs ...string) (string, error) {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return "", fmt.Errorf("%w: %s is required", ErrEmptyID, pairs[i])
		}
		parts = append(parts, pairs[i+1])
	}
	return metadata.ID(parts...), nil
}

// fetch runs a GetMetadata request on the current session and checks the
// reply envelope.
func (c *Client) fetch(ctx context.Context, req *metadata.Request) (*metadata.Reply, []byte, error) {
	v, err := c.connected()
	if err != nil {
		return nil, nil, err
	}
	base, ok := v.capabilities[metadata.CapabilityGetMetadata]
	if !ok {
		return nil, nil, &metadata.ProtocolError{Message: "session has no GetMetadata capability"}
	}

	resp, err := c.exchange(ctx, opGetMetadata, req.URL(base), v.jar)
	if err != nil {
		return nil, nil, err
	}

	reply, err := metadata.ParseReply(resp.Body)
	if err != nil {
		c.recordDecodeFailure(req, err)
		return nil, nil, err
	}
	return reply, resp.Body, nil
}

func (c *Client) recordDecodeFailure(req *metadata.Request, err error) {
	var rce *metadata.ReplyCodeError
	if errors.As(err, &rce) {
		c.stats.recordReplyCodeError()
		c.logger.Debug("metadata request refused", "type", req.Type, "id", req.ID, "code", rce.Code, "text", rce.Text)
		return
	}
	c.stats.recordDecodeError()
	c.logger.Warn("metadata reply not decodable", "type", req.Type, "id", req.ID, "error", err)
}

// fetchOne fetches a metadata kind whose reply holds exactly one element of
// that kind, and projects it.
func fetchOne[T any](ctx context.Context, c *Client, kind metadata.Type, id string, project func(*metadata.RawTable) (T, error)) (T, error) {
	var zero T

	req := metadata.NewRequest(kind, id)
	reply, _, err := c.fetch(ctx, req)
	if err != nil {
		return zero, err
	}

	raw, err := reply.Table(kind)
	if err != nil {
		c.recordDecodeFailure(req, err)
		return zero, err
	}
	out, err := project(raw)
	if err != nil {
		c.recordDecodeFailure(req, err)
		return zero, err
	}
	return out, nil
}

// fetchEach fetches a metadata kind whose reply may hold any number of
// elements of that kind (a "*" ID), and projects each in document order.
func fetchEach[T any](ctx context.Context, c *Client, kind metadata.Type, id string, project func(*metadata.RawTable) (T, error)) ([]T, error) {
	req := metadata.NewRequest(kind, id)
	reply, _, err := c.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	tables, err := reply.Tables(kind)
	if err != nil {
		c.recordDecodeFailure(req, err)
		return nil, err
	}
	out := make([]T, 0, len(tables))
	for _, raw := range tables {
		v, err := project(raw)
		if err != nil {
			c.recordDecodeFailure(req, err)
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
