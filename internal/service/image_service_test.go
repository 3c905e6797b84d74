package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/model"
)

func TestImageService_UploadLimitAndOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "images").ID
	it := f.item(t, owner, "Vase", nil)
	data := pngBytes(t, 40, 30)

	for i := 0; i < model.MaxImagesPerItem; i++ {
		img, err := f.Images.Upload(ctx, owner, it.ID, fmt.Sprintf("dir/img%d.png", i), data)
		require.NoError(t, err)
		assert.Equal(t, i, img.Order)
		assert.Equal(t, fmt.Sprintf("img%d.png", i), img.Filename)
		assert.Equal(t, "image/jpeg", img.MimeType)
	}

	_, err := f.Images.Upload(ctx, owner, it.ID, "extra.png", data)
	ae := requireKind(t, err, apperr.KindBadRequest)
	assert.Contains(t, ae.Message, "10枚")
	assert.Equal(t, 3*model.MaxImagesPerItem, f.blobs.count())

	list, err := f.Images.List(ctx, owner, it.ID)
	require.NoError(t, err)
	require.Len(t, list, model.MaxImagesPerItem)

	var variants map[string]model.ImageVariant
	require.NoError(t, json.Unmarshal(list[0].Variants, &variants))
	assert.Contains(t, variants, "thumb")
	assert.Contains(t, variants, "medium")
}

func TestImageService_DeleteRenumbers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "renumber").ID
	it := f.item(t, owner, "Chair", nil)
	data := pngBytes(t, 20, 20)

	var ids []uint64
	for i := 0; i < 4; i++ {
		img, err := f.Images.Upload(ctx, owner, it.ID, "", data)
		require.NoError(t, err)
		ids = append(ids, img.ID)
	}

	require.NoError(t, f.Images.Delete(ctx, owner, it.ID, ids[1]))

	list, err := f.Images.List(ctx, owner, it.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, img := range list {
		assert.Equal(t, i, img.Order)
	}
	assert.Equal(t, []uint64{ids[0], ids[2], ids[3]}, []uint64{list[0].ID, list[1].ID, list[2].ID})
	assert.Len(t, f.blobs.deleted, 3)

	reordered, err := f.Images.Reorder(ctx, owner, it.ID, []uint64{ids[3], ids[0], ids[2]})
	require.NoError(t, err)
	assert.Equal(t, ids[3], reordered[0].ID)
	assert.Equal(t, 0, reordered[0].Order)

	_, err = f.Images.Reorder(ctx, owner, it.ID, []uint64{ids[3], ids[0]})
	requireKind(t, err, apperr.KindValidation)
}

func TestImageService_DeleteOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "img-owner").ID
	other := f.user(t, "img-other").ID
	it := f.item(t, owner, "Lamp", nil)
	second := f.item(t, owner, "Rug", nil)

	img, err := f.Images.Upload(ctx, owner, it.ID, "a.png", pngBytes(t, 10, 10))
	require.NoError(t, err)

	err = f.Images.Delete(ctx, other, it.ID, img.ID)
	requireKind(t, err, apperr.KindForbidden)

	err = f.Images.Delete(ctx, owner, second.ID, img.ID)
	requireKind(t, err, apperr.KindNotFound)

	err = f.Images.Delete(ctx, owner, it.ID, img.ID+100)
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.Images.Upload(ctx, owner, it.ID, "notes.txt", []byte("plain text, not an image"))
	requireKind(t, err, apperr.KindValidation)
}
