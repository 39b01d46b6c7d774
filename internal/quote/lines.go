package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	suppliesResource  = "supplies"
	workforceResource = "workforces"
)

// Identified is a line with a server id.
type Identified interface {
	RowID() int64
}

// Lines is the write side of one line resource. It satisfies rows.API for
// its line type.
type Lines[T Identified] struct {
	client   *Client
	resource string
}

// Supplies returns the supply line resource.
func (c *Client) Supplies() *Lines[SupplyLine] {
	return &Lines[SupplyLine]{client: c, resource: suppliesResource}
}

// Workforce returns the workforce line resource.
func (c *Client) Workforce() *Lines[WorkforceLine] {
	return &Lines[WorkforceLine]{client: c, resource: workforceResource}
}

// Resource returns the URL segment of the resource.
func (l *Lines[T]) Resource() string { return l.resource }

// CreateBatch creates lines in one request and returns their ids in input
// order. The server creates all or none.
func (l *Lines[T]) CreateBatch(ctx context.Context, shockID int64, lines []T) ([]int64, error) {
	for i := range lines {
		if err := l.check(lines[i]); err != nil {
			return nil, err
		}
	}
	var out idsPayload
	path := shockPath(shockID) + "/" + l.resource + "/batch"
	if err := l.client.do(ctx, http.MethodPost, path, itemsPayload[T]{Items: lines}, &out); err != nil {
		return nil, err
	}
	if len(out.IDs) != len(lines) {
		return nil, fmt.Errorf("created %d %s but got %d ids", len(lines), l.resource, len(out.IDs))
	}
	return out.IDs, nil
}

// Update sends the line's current content.
func (l *Lines[T]) Update(ctx context.Context, line T) error {
	if err := l.check(line); err != nil {
		return err
	}
	return l.client.do(ctx, http.MethodPut, l.itemPath(line), line, nil)
}

// Acknowledge marks the line validated on the server.
func (l *Lines[T]) Acknowledge(ctx context.Context, line T) error {
	return l.client.do(ctx, http.MethodPost, l.itemPath(line)+"/validate", nil, nil)
}

// Delete removes the line on the server.
func (l *Lines[T]) Delete(ctx context.Context, line T) error {
	return l.client.do(ctx, http.MethodDelete, l.itemPath(line), nil, nil)
}

// Reorder stores the business order of the shock's lines.
func (l *Lines[T]) Reorder(ctx context.Context, shockID int64, ids []int64) error {
	path := shockPath(shockID) + "/" + l.resource + "/order"
	return l.client.do(ctx, http.MethodPut, path, idsPayload{IDs: ids}, nil)
}

func (l *Lines[T]) itemPath(line T) string {
	return "/api/" + l.resource + "/" + strconv.FormatInt(line.RowID(), 10)
}

func (l *Lines[T]) check(line T) error {
	if err := l.client.validate.Struct(line); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}
