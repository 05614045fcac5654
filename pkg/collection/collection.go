// Package collection holds an ordered group of models. Membership operations locate their
// target by identity, never by value or position.
package collection

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/model"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

const defaultKind = "Collection"

// Entity is what a collection can hold. *model.Model and any type embedding it qualify.
type Entity interface {
	UID() uuid.UUID
	Attributes() model.Attributes
}

// Factory builds a collection member from plain attributes.
type Factory[T Entity] func(attrs model.Attributes) T

// Collection is an insertion-ordered list of entities. It embeds meta.Meta, so it has
// its own identity, events and endpoint table.
type Collection[T Entity] struct {
	*meta.Meta

	items     []T
	factory   Factory[T]
	transform func([]T) []T
	kind      string
	metaOpts  []meta.Option
}

type Option[T Entity] func(*Collection[T])

// WithFactory sets the factory used to turn plain records into members.
func WithFactory[T Entity](factory Factory[T]) Option[T] {
	return func(c *Collection[T]) {
		c.factory = factory
	}
}

// WithTransform installs a hook that normalizes the initial items.
func WithTransform[T Entity](transform func([]T) []T) Option[T] {
	return func(c *Collection[T]) {
		c.transform = transform
	}
}

func WithKind[T Entity](kind string) Option[T] {
	return func(c *Collection[T]) {
		c.kind = kind
	}
}

// WithMetaOptions forwards options to the embedded Meta.
func WithMetaOptions[T Entity](opts ...meta.Option) Option[T] {
	return func(c *Collection[T]) {
		c.metaOpts = append(c.metaOpts, opts...)
	}
}

// New builds a collection from items, passed once through the transform hook.
func New[T Entity](items []T, opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{kind: defaultKind}
	for _, opt := range opts {
		opt(c)
	}
	c.Meta = meta.NewMeta(c.kind, c.metaOpts...)
	if items == nil {
		items = []T{}
	}
	c.items = c.TransformModels(items)
	return c
}

// TransformModels applies the transform hook to items. Without a hook items are returned
// as they are.
func (c *Collection[T]) TransformModels(items []T) []T {
	if c.transform == nil {
		return items
	}
	return c.transform(items)
}

// Model returns the factory, or nil when none is configured.
func (c *Collection[T]) Model() Factory[T] {
	return c.factory
}

// CreateModel builds a member from attrs. The second result is false without a factory.
func (c *Collection[T]) CreateModel(attrs model.Attributes) (T, bool) {
	if c.factory == nil {
		var zero T
		return zero, false
	}
	return c.factory(attrs), true
}

// Add appends item. Plain records are converted with the factory first.
func (c *Collection[T]) Add(item any) error {
	switch v := item.(type) {
	case T:
		c.items = append(c.items, v)
		return nil
	case model.Attributes:
		return c.addRecord(v)
	case map[string]any:
		return c.addRecord(model.Attributes(v))
	default:
		return utils.NewAppError(utils.CodeConfiguration, "cannot add item to collection",
			fmt.Errorf("%w: %T", utils.ErrUnsupportedItem, item)).
			WithDetail("kind", c.Kind())
	}
}

func (c *Collection[T]) addRecord(attrs model.Attributes) error {
	created, ok := c.CreateModel(attrs)
	if !ok {
		return utils.NewAppError(utils.CodeConfiguration, "cannot convert record", utils.ErrNoFactory).
			WithDetail("kind", c.Kind())
	}
	c.items = append(c.items, created)
	return nil
}

// FindIndex returns the position of the first member sharing item's identity, or -1.
func (c *Collection[T]) FindIndex(item T) int {
	uid := item.UID()
	for i, member := range c.items {
		if member.UID() == uid {
			return i
		}
	}
	return -1
}

// Remove drops the first member sharing item's identity.
func (c *Collection[T]) Remove(item T) {
	index := c.FindIndex(item)
	if index < 0 {
		return
	}
	c.items = slices.Delete(c.items, index, index+1)
}

// Override replaces the member sharing item's identity with a fresh model built from
// item's attributes. It does nothing when item is absent or no factory is configured.
func (c *Collection[T]) Override(item T) {
	index := c.FindIndex(item)
	if index < 0 {
		return
	}
	created, ok := c.CreateModel(item.Attributes())
	if !ok {
		return
	}
	c.items[index] = created
}

// Set replaces the contents with data, adding each element in order. It stops at the
// first element that cannot be added; elements before it stay in the collection.
func (c *Collection[T]) Set(data ...any) error {
	c.DropModels()
	for i, item := range data {
		if err := c.Add(item); err != nil {
			return fmt.Errorf("set item %d: %w", i, err)
		}
	}
	return nil
}

// DropModels empties the collection in place.
func (c *Collection[T]) DropModels() {
	clear(c.items)
	c.items = c.items[:0]
}

// Get returns the live backing slice. It is invalidated by later mutations.
func (c *Collection[T]) Get() []T {
	return c.items
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Load reads the collection through the read endpoint and replaces the contents with the
// returned items. A nil response leaves the contents unchanged.
func (c *Collection[T]) Load(ctx context.Context, payload any) (*meta.Response, error) {
	resp, err := c.Read(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	data := make([]any, 0, len(resp.Items))
	for _, item := range resp.Items {
		data = append(data, model.Attributes(item))
	}
	if err := c.Set(data...); err != nil {
		return resp, err
	}
	return resp, nil
}
