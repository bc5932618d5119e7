package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "tienda": "JBL",
  "productos": [
    {
      "id": 1,
      "nombre": "JBL Flip 6",
      "descripcion": "Parlante portátil",
      "imagen": "../assets/img/flip6.jpg",
      "categoria": "Parlantes",
      "precio": 150000,
      "precio_oferta": 129999.5,
      "oferta": true,
      "envio-gratis": true,
      "extra": {"ignored": [1, 2, 3]}
    },
    {
      "id": 2,
      "nombre": "JBL Tour One",
      "descripcion": "Auriculares",
      "imagen": "../assets/img/tour.jpg",
      "categoria": "Auriculares",
      "precio": null,
      "precio_oferta": null,
      "oferta": false,
      "envio-gratis": false
    }
  ]
}`

func TestDecode(t *testing.T) {
	products, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, products, 2)

	flip := products[0]
	assert.Equal(t, int64(1), flip.ID)
	assert.Equal(t, "JBL Flip 6", flip.Name)
	assert.Equal(t, "Parlantes", flip.Category)
	amount, ok := flip.ListPrice.Amount()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(150000).Equal(amount))
	assert.True(t, decimal.RequireFromString("129999.5").Equal(flip.SalePrice))
	assert.True(t, flip.OnSale)
	assert.True(t, flip.FreeShipping)

	tour := products[1]
	assert.True(t, tour.ListPrice.IsOnRequest())
	assert.False(t, tour.HasSalePrice())
	assert.True(t, tour.EffectivePrice().IsZero())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `<html>404</html>`},
		{name: "array root", doc: `[{"id":1}]`},
		{name: "missing productos", doc: `{"items":[]}`},
		{name: "productos not array", doc: `{"productos":{}}`},
		{name: "product without id", doc: `{"productos":[{"nombre":"x"}]}`},
		{name: "price as string", doc: `{"productos":[{"id":1,"precio":"10"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestDecode_EmptyList(t *testing.T) {
	products, err := Decode([]byte(`{"productos":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	products, err := FileSource{Path: path}.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.List(context.Background())
	require.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/catalogo.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	products, err := NewHTTPSource(srv.URL+"/data/catalogo.json", srv.Client()).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = NewHTTPSource(srv.URL+"/missing.json", nil).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
