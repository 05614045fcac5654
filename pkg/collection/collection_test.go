package collection_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/entropic-model/pkg/collection"
	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/model"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

type bookDefinition struct{ model.Hooks }

func (bookDefinition) Kind() string { return "Book" }

func (bookDefinition) DefaultState() model.Attributes {
	return model.Attributes{"author": "", "name": ""}
}

type Book struct {
	*model.Model
}

func NewBook(data model.Attributes) *Book {
	return &Book{Model: model.New(bookDefinition{}, data, meta.WithLogger(zerolog.Nop()))}
}

func newBooks(items []*Book, opts ...collection.Option[*Book]) *collection.Collection[*Book] {
	opts = append([]collection.Option[*Book]{
		collection.WithFactory[*Book](func(attrs model.Attributes) *Book { return NewBook(attrs) }),
		collection.WithKind[*Book]("Books"),
		collection.WithMetaOptions[*Book](meta.WithLogger(zerolog.Nop())),
	}, opts...)
	return collection.New(items, opts...)
}

func TestNew(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		c := newBooks(nil)
		assert.Equal(t, 0, c.Len())
		assert.NotNil(t, c.Get())
		assert.Equal(t, "Books", c.Kind())
		assert.False(t, c.Busy())
	})

	t.Run("transform runs once over initial items", func(t *testing.T) {
		calls := 0
		first, second := NewBook(nil), NewBook(nil)
		c := newBooks([]*Book{first, second}, collection.WithTransform[*Book](func(items []*Book) []*Book {
			calls++
			return items[:1]
		}))

		assert.Equal(t, 1, calls)
		assert.Equal(t, []*Book{first}, c.Get())

		require.NoError(t, c.Add(second))
		assert.Equal(t, 1, calls)
	})

	t.Run("default kind", func(t *testing.T) {
		c := collection.New[*Book](nil)
		assert.Equal(t, "Collection", c.Kind())
		assert.Nil(t, c.Model())
	})
}

func TestCollection_Add(t *testing.T) {
	t.Run("model", func(t *testing.T) {
		c := newBooks(nil)
		b := NewBook(nil)

		require.NoError(t, c.Add(b))
		assert.Same(t, b, c.Get()[0])
	})

	t.Run("plain records are converted", func(t *testing.T) {
		c := newBooks(nil)

		require.NoError(t, c.Add(model.Attributes{"name": "Dune"}))
		require.NoError(t, c.Add(map[string]any{"name": "Emma"}))

		require.Equal(t, 2, c.Len())
		assert.Equal(t, "Dune", c.Get()[0].GetString("name"))
		assert.Equal(t, "Emma", c.Get()[1].GetString("name"))
		assert.NotEqual(t, c.Get()[0].UID(), c.Get()[1].UID())
	})

	t.Run("record without factory", func(t *testing.T) {
		c := collection.New[*Book](nil, collection.WithMetaOptions[*Book](meta.WithLogger(zerolog.Nop())))

		err := c.Add(model.Attributes{"name": "Dune"})

		assert.ErrorIs(t, err, utils.ErrNoFactory)
		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, utils.CodeConfiguration, appErr.Code)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("unsupported type", func(t *testing.T) {
		c := newBooks(nil)

		err := c.Add(42)

		assert.ErrorIs(t, err, utils.ErrUnsupportedItem)
		assert.Equal(t, 0, c.Len())
	})
}

func TestCollection_CreateModel(t *testing.T) {
	c := newBooks(nil)

	b, ok := c.CreateModel(model.Attributes{"author": "Austen"})
	require.True(t, ok)
	assert.Equal(t, "Austen", b.GetString("author"))

	_, ok = collection.New[*Book](nil).CreateModel(nil)
	assert.False(t, ok)
}

func TestCollection_FindIndexAndRemove(t *testing.T) {
	a, b, cBook := NewBook(nil), NewBook(nil), NewBook(nil)
	c := newBooks([]*Book{a, b, cBook})

	assert.Equal(t, 1, c.FindIndex(b))
	assert.Equal(t, -1, c.FindIndex(NewBook(nil)))

	c.Remove(b)
	assert.Equal(t, []*Book{a, cBook}, c.Get())

	c.Remove(NewBook(nil))
	assert.Equal(t, 2, c.Len())
}

func TestCollection_RemoveReleasesTail(t *testing.T) {
	a, b := NewBook(nil), NewBook(nil)
	c := newBooks([]*Book{a, b})
	live := c.Get()

	c.Remove(a)

	require.Equal(t, 1, c.Len())
	assert.Same(t, b, c.Get()[0])
	assert.Nil(t, live[1])
}

func TestCollection_IdentityNotValue(t *testing.T) {
	a := NewBook(model.Attributes{"name": "Same"})
	b := NewBook(model.Attributes{"name": "Same"})
	c := newBooks([]*Book{a, b})

	c.Remove(b)

	require.Equal(t, 1, c.Len())
	assert.Same(t, a, c.Get()[0])

	clone := &Book{Model: a.Clone()}
	assert.Equal(t, 0, c.FindIndex(clone))
}

func TestCollection_Override(t *testing.T) {
	a, b := NewBook(model.Attributes{"name": "Old"}), NewBook(nil)
	c := newBooks([]*Book{a, b})

	a.SetField("name", "New")
	c.Override(a)

	require.Equal(t, 2, c.Len())
	replaced := c.Get()[0]
	assert.NotSame(t, a, replaced)
	assert.Equal(t, "New", replaced.GetString("name"))
	assert.Same(t, b, c.Get()[1])

	c.Override(NewBook(nil))
	assert.Equal(t, 2, c.Len())

	noFactory := collection.New([]*Book{a})
	noFactory.Override(a)
	assert.Same(t, a, noFactory.Get()[0])
}

func TestCollection_Set(t *testing.T) {
	existing := NewBook(nil)
	c := newBooks([]*Book{existing})
	b := NewBook(nil)

	require.NoError(t, c.Set(b, model.Attributes{"name": "Dune"}))

	require.Equal(t, 2, c.Len())
	assert.Same(t, b, c.Get()[0])
	assert.Equal(t, "Dune", c.Get()[1].GetString("name"))
	assert.Equal(t, -1, c.FindIndex(existing))

	err := c.Set(b, "not a book", NewBook(nil))
	assert.ErrorIs(t, err, utils.ErrUnsupportedItem)
	assert.Equal(t, 1, c.Len())
}

func TestCollection_SetRoundTrip(t *testing.T) {
	c := newBooks(nil)
	records := []any{
		model.Attributes{"author": "Herbert", "name": "Dune"},
		model.Attributes{"author": "Austen", "name": "Emma"},
	}
	require.NoError(t, c.Set(records...))

	var attrs []any
	for _, b := range c.Get() {
		attrs = append(attrs, b.Attributes())
	}

	assert.Equal(t, records, attrs)
}

func TestCollection_DropModels(t *testing.T) {
	c := newBooks([]*Book{NewBook(nil), NewBook(nil)})

	c.DropModels()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Get())
}

func TestCollection_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces contents with items", func(t *testing.T) {
		var received any
		c := newBooks([]*Book{NewBook(nil)}, collection.WithMetaOptions[*Book](meta.WithEndpoints(meta.Endpoints{
			Read: func(ctx context.Context, payload any) (*meta.Response, error) {
				received = payload
				return &meta.Response{Items: []map[string]any{
					{"name": "Dune"},
					{"name": "Emma"},
				}}, nil
			},
		})))

		resp, err := c.Load(ctx, "page=1")

		require.NoError(t, err)
		assert.Len(t, resp.Items, 2)
		assert.Equal(t, "page=1", received)
		require.Equal(t, 2, c.Len())
		assert.Equal(t, "Emma", c.Get()[1].GetString("name"))
		assert.False(t, c.Busy())
	})

	t.Run("failure keeps contents", func(t *testing.T) {
		reason := errors.New("offline")
		existing := NewBook(nil)
		c := newBooks([]*Book{existing}, collection.WithMetaOptions[*Book](meta.WithEndpoints(meta.Endpoints{
			Read: func(ctx context.Context, payload any) (*meta.Response, error) {
				return nil, reason
			},
		})))

		_, err := c.Load(ctx, nil)

		assert.ErrorIs(t, err, reason)
		assert.Equal(t, []*Book{existing}, c.Get())
	})

	t.Run("no endpoint", func(t *testing.T) {
		c := newBooks([]*Book{NewBook(nil)})

		resp, err := c.Load(ctx, nil)

		assert.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, 1, c.Len())
	})
}
