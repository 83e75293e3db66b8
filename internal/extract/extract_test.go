package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const jsonldBreadcrumbPage = `<html><head>
<script type="application/ld+json">
{"@type":"BreadcrumbList","itemListElement":[
  {"item":{"name":"Inicio"}},
  {"item":{"name":"Moda"}},
  {"name":"Mujer"}
]}
</script>
</head><body></body></html>`

const jsonldGraphPage = `<html><head>
<script type="application/ld+json">
{"@graph":[
  {"@type":"Product","name":"Polera"},
  {"@type":"BreadcrumbList","itemListElement":[{"name":"Hogar"},{"name":"Cocina"}]}
]}
</script>
</head><body></body></html>`

const jsonldProductPage = `<html><head>
<script type="application/ld+json">
{"@type":"Product","category":"Moda/Mujer/Bottoms"}
</script>
</head><body></body></html>`

const microdataPage = `<html><body>
<ol itemtype="https://schema.org/BreadcrumbList">
  <li itemprop="itemListElement"><span itemprop="name">Home</span></li>
  <li itemprop="itemListElement"><span itemprop="name">Electro</span></li>
  <li itemprop="itemListElement"><span itemprop="name">Audio</span></li>
</ol>
</body></html>`

const dataLayerPage = `<html><head><script>
window.dataLayer = dataLayer = [{"event":"pageview","category":"Deporte > Ciclismo"}];
</script></head><body></body></html>`

const nextDataPage = `<html><body>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"product":{"breadcrumbs":[
  {"name":"Inicio"},{"label":"Tecno"},"Computación"
]}}}}
</script>
</body></html>`

const domPage = `<html><body>
<nav aria-label="breadcrumb">
  <a href="/">Inicio</a><span>&gt;</span>
  <a href="/moda">Moda</a><span>&gt;</span>
  <span>Mujer</span>
</nav>
</body></html>`

func defaultChain(t *testing.T) *Chain {
	t.Helper()
	return NewChain(nil, DefaultStrategies(nil)...)
}

func TestJSONLDBreadcrumb(t *testing.T) {
	t.Run("itemListElement names, home excluded", func(t *testing.T) {
		labels := JSONLDBreadcrumb{}.Extract(NewPage([]byte(jsonldBreadcrumbPage)))
		require.Equal(t, []string{"Moda", "Mujer"}, labels)
	})

	t.Run("graph container", func(t *testing.T) {
		labels := JSONLDBreadcrumb{}.Extract(NewPage([]byte(jsonldGraphPage)))
		require.Equal(t, []string{"Hogar", "Cocina"}, labels)
	})

	t.Run("malformed block falls back to per-line parse", func(t *testing.T) {
		page := `<html><head><script type="application/ld+json">
{"@type":"Organization","name":"x"}
{"@type":"BreadcrumbList","itemListElement":[{"name":"A"},{"name":"B"}]}
</script></head></html>`
		labels := JSONLDBreadcrumb{}.Extract(NewPage([]byte(page)))
		require.Equal(t, []string{"A", "B"}, labels)
	})

	t.Run("garbage json yields nothing", func(t *testing.T) {
		page := `<html><head><script type="application/ld+json">{broken</script></head></html>`
		require.Empty(t, JSONLDBreadcrumb{}.Extract(NewPage([]byte(page))))
	})
}

func TestJSONLDProduct(t *testing.T) {
	t.Run("category string is split", func(t *testing.T) {
		labels := JSONLDProduct{}.Extract(NewPage([]byte(jsonldProductPage)))
		require.Equal(t, []string{"Moda", "Mujer", "Bottoms"}, labels)
	})

	t.Run("category under brand", func(t *testing.T) {
		page := `<html><head><script type="application/ld+json">
{"@type":"Product","brand":{"category":"Hogar > Dormitorio"}}
</script></head></html>`
		labels := JSONLDProduct{}.Extract(NewPage([]byte(page)))
		require.Equal(t, []string{"Hogar", "Dormitorio"}, labels)
	})

	t.Run("no product block", func(t *testing.T) {
		require.Empty(t, JSONLDProduct{}.Extract(NewPage([]byte(domPage))))
	})
}

func TestMicrodata(t *testing.T) {
	labels := Microdata{}.Extract(NewPage([]byte(microdataPage)))
	require.Equal(t, []string{"Electro", "Audio"}, labels)
}

func TestDataLayer(t *testing.T) {
	t.Run("analytics category", func(t *testing.T) {
		labels := DataLayer{}.Extract(NewPage([]byte(dataLayerPage)))
		require.Equal(t, []string{"Deporte", "Ciclismo"}, labels)
	})

	t.Run("next data hydration payload", func(t *testing.T) {
		labels := DataLayer{}.Extract(NewPage([]byte(nextDataPage)))
		require.Equal(t, []string{"Tecno", "Computación"}, labels)
	})

	t.Run("nothing embedded", func(t *testing.T) {
		require.Empty(t, DataLayer{}.Extract(NewPage([]byte("<html></html>"))))
	})

	t.Run("first breadcrumb list wins over siblings", func(t *testing.T) {
		page := `<html><body><script id="__NEXT_DATA__" type="application/json">
{"props":{"aaa":{"breadcrumbs":["Hogar","Cocina"]},"bbb":{"breadcrumb":["Moda","Mujer"]}}}
</script></body></html>`
		for i := 0; i < 50; i++ {
			labels := DataLayer{}.Extract(NewPage([]byte(page)))
			require.Equal(t, []string{"Hogar", "Cocina"}, labels)
		}
	})

	t.Run("empty breadcrumb list falls through to a later one", func(t *testing.T) {
		page := `<html><body><script id="__NEXT_DATA__" type="application/json">
{"props":{"aaa":{"breadcrumbs":[]},"bbb":{"breadcrumb":["Moda","Mujer"]}}}
</script></body></html>`
		labels := DataLayer{}.Extract(NewPage([]byte(page)))
		require.Equal(t, []string{"Moda", "Mujer"}, labels)
	})
}

func TestDOM(t *testing.T) {
	t.Run("default selectors", func(t *testing.T) {
		labels := NewDOM(nil).Extract(NewPage([]byte(domPage)))
		require.Equal(t, []string{"Moda", "Mujer"}, labels)
	})

	t.Run("custom selector", func(t *testing.T) {
		page := `<html><body><div class="miga"><a>Inicio</a><a>Ferretería</a><a>Pinturas</a></div></body></html>`
		labels := NewDOM([]string{"div.miga"}).Extract(NewPage([]byte(page)))
		require.Equal(t, []string{"Ferretería", "Pinturas"}, labels)
	})

	t.Run("nested list items deduped", func(t *testing.T) {
		page := `<html><body><ol class="breadcrumb">
<li><a href="/moda">Moda</a></li><li><span>Mujer</span></li>
</ol></body></html>`
		labels := NewDOM(nil).Extract(NewPage([]byte(page)))
		require.Equal(t, []string{"Moda", "Mujer"}, labels)
	})
}

func TestChain(t *testing.T) {
	t.Run("first non-empty strategy wins", func(t *testing.T) {
		labels, tag := defaultChain(t).Extract([]byte(jsonldBreadcrumbPage))
		require.Equal(t, []string{"Moda", "Mujer"}, labels)
		require.Equal(t, TagJSONLDBreadcrumb, tag)
	})

	t.Run("falls through to dom", func(t *testing.T) {
		labels, tag := defaultChain(t).Extract([]byte(domPage))
		require.Equal(t, []string{"Moda", "Mujer"}, labels)
		require.Equal(t, TagDOM, tag)
	})

	t.Run("nothing extractable", func(t *testing.T) {
		labels, tag := defaultChain(t).Extract([]byte("<html><body><p>hi</p></body></html>"))
		require.Empty(t, labels)
		require.Equal(t, TagNone, tag)
	})

	t.Run("empty body", func(t *testing.T) {
		labels, tag := defaultChain(t).Extract(nil)
		require.Empty(t, labels)
		require.Equal(t, TagNone, tag)
	})
}

func TestFromNames(t *testing.T) {
	t.Run("builds configured order", func(t *testing.T) {
		strategies, err := FromNames([]string{TagDOM, TagJSONLDBreadcrumb}, nil)
		require.NoError(t, err)
		require.Len(t, strategies, 2)
		require.Equal(t, TagDOM, strategies[0].Tag())
		require.Equal(t, TagJSONLDBreadcrumb, strategies[1].Tag())
	})

	t.Run("unknown name errors", func(t *testing.T) {
		_, err := FromNames([]string{"xpath"}, nil)
		require.Error(t, err)
	})
}
