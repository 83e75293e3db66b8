package catalogapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientLookup(t *testing.T) {
	t.Run("nil client always misses", func(t *testing.T) {
		var c *Client
		crumbs, ok := c.Lookup(context.Background(), "MPM10002913810")
		require.False(t, ok)
		require.Nil(t, crumbs)
	})

	t.Run("disabled config yields nil client", func(t *testing.T) {
		require.Nil(t, New(Config{Enabled: false, BaseURL: "http://example.test"}, nil))
		require.Nil(t, New(Config{Enabled: true}, nil))
	})

	t.Run("falls through params until one hits", func(t *testing.T) {
		var seen []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("partNumber") != "":
				seen = append(seen, "partNumber")
				w.WriteHeader(http.StatusNotFound)
			case q.Get("sku") != "":
				seen = append(seen, "sku")
				w.Write([]byte(`{"product":{"categoryPath":"Despensa > Arroz y Legumbres > Arroz"}}`))
			default:
				seen = append(seen, "ean")
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		c := New(Config{Enabled: true, BaseURL: srv.URL, Path: "/api/catalog/product"}, nil)
		defer c.Close()

		crumbs, ok := c.Lookup(context.Background(), "MPM10002913810")
		require.True(t, ok)
		require.Equal(t, []string{"Despensa", "Arroz y Legumbres", "Arroz"}, crumbs)
		require.Equal(t, []string{"partNumber", "sku"}, seen)
	})

	t.Run("category list of objects", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"categories":[{"name":"Hogar"},{"name":"Cocina"},{"label":"Ollas"}]}`))
		}))
		defer srv.Close()

		c := New(Config{Enabled: true, BaseURL: srv.URL, Path: "/lookup"}, nil)
		defer c.Close()

		crumbs, ok := c.Lookup(context.Background(), "4")
		require.True(t, ok)
		require.Equal(t, []string{"Hogar", "Cocina", "Ollas"}, crumbs)
	})

	t.Run("garbage body is a miss", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		}))
		defer srv.Close()

		c := New(Config{Enabled: true, BaseURL: srv.URL, Path: "/lookup"}, nil)
		defer c.Close()

		_, ok := c.Lookup(context.Background(), "4")
		require.False(t, ok)
	})

	t.Run("sends api key header", func(t *testing.T) {
		var gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("X-Api-Key")
			w.Write([]byte(`{"category":"Despensa > Arroz"}`))
		}))
		defer srv.Close()

		c := New(Config{Enabled: true, BaseURL: srv.URL, Path: "/lookup", APIKey: "secret"}, nil)
		defer c.Close()

		_, ok := c.Lookup(context.Background(), "4")
		require.True(t, ok)
		require.Equal(t, "secret", gotKey)
	})
}
