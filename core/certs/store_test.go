package certs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvastack/stencil/core/certs"
)

func testBundle(marker string) certs.Bundle {
	return certs.Bundle{
		Certificate: []byte("cert-" + marker),
		PrivateKey:  []byte("key-" + marker),
		FullChain:   []byte("chain-" + marker),
	}
}

func TestNewFSStore(t *testing.T) {
	t.Parallel()

	t.Run("requires directory", func(t *testing.T) {
		t.Parallel()
		_, err := certs.NewFSStore("")
		assert.ErrorIs(t, err, certs.ErrStorageRequired)
	})

	t.Run("creates root", func(t *testing.T) {
		t.Parallel()
		root := filepath.Join(t.TempDir(), "certificates")
		store, err := certs.NewFSStore(root)
		require.NoError(t, err)
		assert.DirExists(t, store.Root())
	})
}

func TestFSStore_PutBundle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("writes all three artifacts", func(t *testing.T) {
		t.Parallel()
		store, err := certs.NewFSStore(t.TempDir())
		require.NoError(t, err)

		paths, err := store.PutBundle(ctx, "shop.example.com", testBundle("a"))
		require.NoError(t, err)

		cert, err := os.ReadFile(paths.CertificatePath)
		require.NoError(t, err)
		assert.Equal(t, "cert-a", string(cert))

		key, err := os.ReadFile(paths.PrivateKeyPath)
		require.NoError(t, err)
		assert.Equal(t, "key-a", string(key))

		chain, err := os.ReadFile(paths.FullChainPath)
		require.NoError(t, err)
		assert.Equal(t, "chain-a", string(chain))

		assert.True(t, store.Exists(ctx, "shop.example.com"))
	})

	t.Run("replaces the previous bundle wholesale", func(t *testing.T) {
		t.Parallel()
		store, err := certs.NewFSStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.PutBundle(ctx, "shop.example.com", testBundle("old"))
		require.NoError(t, err)
		paths, err := store.PutBundle(ctx, "shop.example.com", testBundle("new"))
		require.NoError(t, err)

		cert, err := os.ReadFile(paths.CertificatePath)
		require.NoError(t, err)
		assert.Equal(t, "cert-new", string(cert))

		// No staging leftovers next to the domain directory.
		entries, err := os.ReadDir(filepath.Join(store.Root(), "domains"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "shop.example.com", entries[0].Name())
	})

	t.Run("rejects incomplete bundles", func(t *testing.T) {
		t.Parallel()
		store, err := certs.NewFSStore(t.TempDir())
		require.NoError(t, err)

		bundle := testBundle("a")
		bundle.PrivateKey = nil
		_, err = store.PutBundle(ctx, "shop.example.com", bundle)
		require.Error(t, err)
		assert.False(t, store.Exists(ctx, "shop.example.com"))
	})

	t.Run("rejects empty domain", func(t *testing.T) {
		t.Parallel()
		store, err := certs.NewFSStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.PutBundle(ctx, "", testBundle("a"))
		assert.ErrorIs(t, err, certs.ErrInvalidDomain)
	})

	t.Run("sanitizes hostile domain strings", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		store, err := certs.NewFSStore(root)
		require.NoError(t, err)

		paths, err := store.PutBundle(ctx, "../../etc/passwd", testBundle("a"))
		require.NoError(t, err)

		rel, err := filepath.Rel(root, paths.CertificatePath)
		require.NoError(t, err)
		assert.False(t, filepath.IsAbs(rel))
		assert.NotContains(t, rel, "..")
	})
}

func TestFSStore_ReadCertificate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := certs.NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.ReadCertificate(ctx, "missing.example.com")
	assert.ErrorIs(t, err, certs.ErrCertificateNotFound)

	_, err = store.PutBundle(ctx, "shop.example.com", testBundle("a"))
	require.NoError(t, err)

	cert, err := store.ReadCertificate(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "cert-a", string(cert))
}

func TestFSStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := certs.NewFSStore(t.TempDir())
	require.NoError(t, err)

	removed, err := store.Delete(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.PutBundle(ctx, "shop.example.com", testBundle("a"))
	require.NoError(t, err)

	removed, err = store.Delete(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, store.Exists(ctx, "shop.example.com"))
}

func TestFSStore_ListDomains(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := certs.NewFSStore(t.TempDir())
	require.NoError(t, err)

	domains, err := store.ListDomains(ctx)
	require.NoError(t, err)
	assert.Empty(t, domains)

	for _, domain := range []string{"b.example.com", "a.example.com"} {
		_, err = store.PutBundle(ctx, domain, testBundle(domain))
		require.NoError(t, err)
	}

	domains, err = store.ListDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, domains)
}
