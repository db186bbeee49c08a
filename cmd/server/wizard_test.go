package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hperssn/productwizard/internal/storage"
	"github.com/hperssn/productwizard/internal/wizard"
)

func TestDriveWizard_RetriesInvalidStep(t *testing.T) {
	repo, err := storage.NewSQLiteRepository("sqlite", filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	wz, err := wizard.New(repo)
	require.NoError(t, err)

	answers := map[string][]string{
		"name":     {"Croissant"},
		"price":    {"", "lots", "1.90"},
		"category": {"Pastry"},
	}
	asked := map[string]int{}
	ask := func(field, current string) (string, error) {
		i := asked[field]
		asked[field]++
		return answers[field][i], nil
	}

	var out bytes.Buffer
	product, err := driveWizard(context.Background(), wz, ask, &out)
	require.NoError(t, err)

	assert.Equal(t, 3, asked["price"])
	assert.Equal(t, "Croissant", product.Name)
	assert.Equal(t, "1.90", product.Price)
	assert.Contains(t, out.String(), "Price can't be blank")
	assert.Contains(t, out.String(), "Price is not a valid amount")

	records, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDriveWizard_AskError(t *testing.T) {
	wz, err := wizard.New(&storage.SQLiteRepository{})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = driveWizard(context.Background(), wz, func(string, string) (string, error) {
		return "", boom
	}, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "Name", fieldLabel("add_name"))
	assert.Equal(t, "Category", fieldLabel("category"))
	assert.Equal(t, "", fieldLabel(""))
}
