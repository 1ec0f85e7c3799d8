package capability

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenProvider struct {
	token string
}

func TestRegistry(t *testing.T) {
	t.Run("Register and Get", func(t *testing.T) {
		reg := NewRegistry()
		provider := &tokenProvider{token: "abc"}

		require.NoError(t, reg.Register("access-token", provider))

		got, err := reg.Get("access-token")
		require.NoError(t, err)
		assert.Same(t, provider, got)

		owner, ok := reg.Owner("access-token")
		assert.True(t, ok)
		assert.Equal(t, HostOwner, owner)
	})

	t.Run("Get is idempotent", func(t *testing.T) {
		reg := NewRegistry()
		provider := &tokenProvider{token: "abc"}
		require.NoError(t, reg.Register("access-token", provider))

		for i := 0; i < 5; i++ {
			got, err := reg.Get("access-token")
			require.NoError(t, err)
			assert.Same(t, provider, got)
		}
	})

	t.Run("Register duplicate keeps first", func(t *testing.T) {
		reg := NewRegistry()
		first := &tokenProvider{token: "first"}
		second := &tokenProvider{token: "second"}

		require.NoError(t, reg.Scope("auth", nil).Register("access-token", first))
		err := reg.Scope("other-auth", nil).Register("access-token", second)

		var dup *DuplicateCapabilityError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, Type("access-token"), dup.Type)
		assert.Equal(t, "auth", dup.ExistingOwner)
		assert.Equal(t, "other-auth", dup.RejectedOwner)
		assert.True(t, IsDuplicate(err))

		got, err := reg.Get("access-token")
		require.NoError(t, err)
		assert.Same(t, first, got)
	})

	t.Run("Get missing", func(t *testing.T) {
		reg := NewRegistry()

		_, err := reg.Get("installation-id")
		var missing *MissingCapabilityError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, Type("installation-id"), missing.Type)
		assert.True(t, IsMissing(err))
	})

	t.Run("Rejects invalid registrations", func(t *testing.T) {
		reg := NewRegistry()

		assert.ErrorIs(t, reg.Register("", "x"), ErrInvalidCapability)
		assert.ErrorIs(t, reg.Register("x", nil), ErrInvalidCapability)
		assert.Empty(t, reg.Types())
	})

	t.Run("Missing preserves order", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("b", 1))

		assert.Equal(t, []Type{"c", "a"}, reg.Missing([]Type{"c", "b", "a"}))
		assert.Nil(t, reg.Missing([]Type{"b"}))
	})

	t.Run("Types and Entries are sorted", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("relay", 1))
		require.NoError(t, reg.Register("auth", 2))
		require.NoError(t, reg.Register("lobby", 3))

		assert.Equal(t, []Type{"auth", "lobby", "relay"}, reg.Types())

		entries := reg.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, Type("auth"), entries[0].Type)
		assert.Equal(t, 2, entries[0].Instance)
		assert.False(t, entries[0].RegisteredAt.IsZero())
	})

	t.Run("Reset", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("a", 1))
		require.NoError(t, reg.Claim("pkg", "b"))

		reg.Reset()

		assert.False(t, reg.Has("a"))
		assert.NoError(t, reg.Scope("other", nil).Register("b", 2))
	})
}

func TestRegistry_Claims(t *testing.T) {
	t.Run("Claimed type rejects other writers", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Claim("auth", "access-token"))

		err := reg.Scope("lobby", nil).Register("access-token", "stolen")
		var ownership *OwnershipError
		require.ErrorAs(t, err, &ownership)
		assert.Equal(t, "auth", ownership.Owner)
		assert.Equal(t, "lobby", ownership.Writer)

		assert.NoError(t, reg.Scope("auth", nil).Register("access-token", "token"))
	})

	t.Run("Second claim is a duplicate", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Claim("auth", "access-token"))
		require.NoError(t, reg.Claim("auth", "access-token"))

		err := reg.Claim("other", "access-token")
		assert.True(t, IsDuplicate(err))
	})

	t.Run("Claim on host-registered type is a duplicate", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("transport", "client"))

		assert.True(t, IsDuplicate(reg.Claim("pkg", "transport")))
	})
}

func TestScope(t *testing.T) {
	t.Run("Declared types only", func(t *testing.T) {
		reg := NewRegistry()
		scope := reg.Scope("auth", []Type{"access-token"})

		require.NoError(t, scope.Register("access-token", "token"))
		err := scope.Register("player-id", "p1")

		var ownership *OwnershipError
		require.ErrorAs(t, err, &ownership)
		assert.Empty(t, ownership.Owner)
		assert.Contains(t, err.Error(), "not among its declared capabilities")
		assert.Equal(t, []Type{"access-token"}, scope.Registered())
		assert.Equal(t, "auth", scope.Owner())
	})

	t.Run("Reads see other packages", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Scope("installation", nil).Register("installation-id", "id-1"))

		scope := reg.Scope("auth", nil)
		assert.True(t, scope.Has("installation-id"))
		got, err := scope.Get("installation-id")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got)
	})
}

func TestLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("access-token", &tokenProvider{token: "abc"}))
	require.NoError(t, reg.Register("installation-id", "id-1"))

	provider, err := Lookup[*tokenProvider](reg, "access-token")
	require.NoError(t, err)
	assert.Equal(t, "abc", provider.token)

	id, err := Lookup[string](reg, "installation-id")
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	_, err = Lookup[string](reg, "access-token")
	var wrongType *WrongTypeError
	require.ErrorAs(t, err, &wrongType)
	assert.Equal(t, "string", wrongType.Want)
	assert.Equal(t, "*capability.tokenProvider", wrongType.Got)

	_, err = Lookup[fmt.Stringer](reg, "nope")
	assert.True(t, IsMissing(err))
}

func TestRegistry_OnRegister(t *testing.T) {
	reg := NewRegistry()

	var seen []Entry
	reg.OnRegister(func(entry Entry) {
		// Callbacks run outside the lock and may read the registry.
		assert.True(t, reg.Has(entry.Type))
		seen = append(seen, entry)
	})

	require.NoError(t, reg.Scope("auth", nil).Register("access-token", "token"))
	require.Error(t, reg.Register("access-token", "again"))

	require.Len(t, seen, 1)
	assert.Equal(t, "auth", seen[0].Owner)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	reg := NewRegistry()

	const writers = 32
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- reg.Scope(fmt.Sprintf("pkg-%d", n), nil).Register("shared", n)
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, new(*DuplicateCapabilityError)):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, duplicates)
	assert.True(t, reg.Has("shared"))
}
