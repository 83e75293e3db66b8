package fetch

import "bytes"

// MinHTMLBytes is the size floor below which a static snapshot is treated
// as a shell that needs a JavaScript pass.
const MinHTMLBytes = 2048

// spaMarkers are strings typical of client-side rendered shells. Their
// presence on a thin page means the breadcrumb is likely mounted in the
// browser, not in the server response.
var spaMarkers = [][]byte{
	[]byte("__NEXT_DATA__"),
	[]byte("data-reactroot"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
}

// NeedsJS reports whether a static fetch looks too thin to carry a
// breadcrumb and should be retried with the headless renderer.
func NeedsJS(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	if len(body) < MinHTMLBytes {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}
