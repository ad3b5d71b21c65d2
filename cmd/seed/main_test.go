package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

func TestReadProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,code,name\nA,SKU-A,Crema facial\nB, SKU-B ,Jabón\n"), 0o600))

	products, err := readProducts(path, false)
	require.NoError(t, err)
	assert.Equal(t, []entity.Product{
		{ID: "A", Code: "SKU-A", Name: "Crema facial"},
		{ID: "B", Code: "SKU-B", Name: "Jabón"},
	}, products)
}

func TestReadProducts_Latin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String("C,SKU-C,Loción\n")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "latin1.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	products, err := readProducts(path, true)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Loción", products[0].Name)
}

func TestReadProducts_FilaIncompleta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "malo.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,SKU-A,\n"), 0o600))

	_, err := readProducts(path, false)
	assert.Error(t, err)
}
