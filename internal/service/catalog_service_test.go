package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssetStore struct {
	mu      sync.Mutex
	saved   map[string]string
	deleted []string
	delErr  error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{saved: make(map[string]string)}
}

func (f *fakeAssetStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _ := io.ReadAll(r)
	ref := "ref-" + filename
	f.saved[ref] = string(data)
	return ref, nil
}

func (f *fakeAssetStore) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func TestAddProductWithImage(t *testing.T) {
	store := newFakeStore()
	assetStore := newFakeAssetStore()
	svc := NewCatalogService(store, assetStore)

	p := &models.Product{Code: "A", Name: "Apple", Price: 10, Stock: 3}
	err := svc.AddProduct(context.Background(), p, strings.NewReader("img-bytes"), "apple.png")
	require.NoError(t, err)

	assert.Equal(t, "ref-apple.png", p.Image)
	assert.Equal(t, "img-bytes", assetStore.saved["ref-apple.png"])

	got, err := svc.GetProduct(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "ref-apple.png", got.Image)
}

func TestAddProductValidation(t *testing.T) {
	svc := NewCatalogService(newFakeStore(), newFakeAssetStore())
	ctx := context.Background()

	cases := []models.Product{
		{Name: "NoCode", Price: 1, Stock: 1},
		{Code: "X", Price: 1, Stock: 1},
		{Code: "X", Name: "Neg", Price: -1, Stock: 1},
		{Code: "X", Name: "Neg", Price: 1, Stock: -1},
	}
	for _, p := range cases {
		p := p
		assert.True(t, apperr.IsValidation(svc.AddProduct(ctx, &p, nil, "")))
	}
}

func TestDeleteProductReleasesAsset(t *testing.T) {
	store := newFakeStore()
	assetStore := newFakeAssetStore()
	svc := NewCatalogService(store, assetStore)
	ctx := context.Background()

	store.addProduct("A", "Apple", 10, 3)
	store.products["A"].Image = "ref-apple.png"

	require.NoError(t, svc.DeleteProduct(ctx, "A"))
	assert.Equal(t, []string{"ref-apple.png"}, assetStore.deleted)
	_, err := svc.GetProduct(ctx, "A")
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteProductAssetFailureNonFatal(t *testing.T) {
	store := newFakeStore()
	assetStore := newFakeAssetStore()
	assetStore.delErr = errors.New("blob store down")
	svc := NewCatalogService(store, assetStore)
	ctx := context.Background()

	store.addProduct("A", "Apple", 10, 3)
	store.products["A"].Image = "ref-apple.png"

	require.NoError(t, svc.DeleteProduct(ctx, "A"), "asset failure must not block record deletion")
	_, err := svc.GetProduct(ctx, "A")
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteUnknownProduct(t *testing.T) {
	svc := NewCatalogService(newFakeStore(), newFakeAssetStore())
	err := svc.DeleteProduct(context.Background(), "GHOST")
	assert.True(t, apperr.IsNotFound(err))
}
