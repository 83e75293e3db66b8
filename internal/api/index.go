package api

import "net/http"

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(indexHTML)); err != nil {
		s.logger.Debug("write index failed")
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Catalog Check</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 64rem; margin: 2rem auto; padding: 0 1rem; }
  textarea, input[type=text] { width: 100%; font-family: monospace; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { border: 1px solid #ccc; padding: 0.3rem 0.5rem; text-align: left; font-size: 0.85rem; }
  tr.no td { background: #fde8e8; }
  #status { margin-top: 1rem; font-weight: bold; }
  fieldset { margin-top: 1rem; }
</style>
</head>
<body>
<h1>Catalog Check</h1>
<p>Pega un SKU por línea y lanza la validación de catálogo.</p>
<textarea id="skus" rows="10" placeholder="MPM10002913810&#10;MPM10002913810-4"></textarea>
<fieldset>
  <legend>Opciones</legend>
  <label>Cookie header (opcional)<br><input type="text" id="cookie" placeholder="k1=v1; k2=v2"></label><br>
  <label>Delay entre SKUs (ms) <input type="number" id="delay" value="1500" min="0"></label>
  <label><input type="checkbox" id="headless" checked> usar navegador headless como fallback</label>
  <label><input type="checkbox" id="only_not" checked> mostrar solo NO catalogados</label>
</fieldset>
<button id="go">Validar</button>
<div id="status"></div>
<div id="out"></div>
<script>
const el = id => document.getElementById(id);
let timer = null;

el('go').addEventListener('click', async () => {
  const skus = el('skus').value.split('\n').map(s => s.trim()).filter(Boolean);
  if (!skus.length) { el('status').textContent = 'No hay SKUs.'; return; }
  const body = {
    skus: skus,
    cookie_header: el('cookie').value,
    delay_ms: parseInt(el('delay').value, 10) || 0,
    headless: el('headless').checked
  };
  const res = await fetch('/v1/runs', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(body)
  });
  if (!res.ok) { el('status').textContent = 'Error: ' + (await res.text()); return; }
  const {run_id} = await res.json();
  el('status').textContent = 'Run ' + run_id + ' en curso…';
  if (timer) clearInterval(timer);
  timer = setInterval(() => poll(run_id), 1500);
});

async function poll(runID) {
  const res = await fetch('/v1/runs/' + runID + '/status');
  if (!res.ok) return;
  const {run} = await res.json();
  const c = run.counters;
  el('status').textContent = run.status + ' · ' + c.processed + '/' + c.total +
    ' (' + c.not_cataloged + ' no catalogados)';
  if (run.status === 'succeeded' || run.status === 'canceled') {
    clearInterval(timer);
    timer = null;
    render(runID);
  }
}

async function render(runID) {
  const only = el('only_not').checked ? '?only_not_cataloged=1' : '';
  const res = await fetch('/v1/runs/' + runID + '/result' + only);
  if (!res.ok) return;
  const {rows, summary} = await res.json();
  let html = '<p>' + summary.cataloged + ' catalogados, ' + summary.not_cataloged +
    ' no catalogados. <a href="/v1/runs/' + runID + '/csv">Descargar CSV</a></p>';
  html += '<table><tr><th>SKU</th><th>Catalogado</th><th>Ruta</th><th>Fuente</th><th>Modo</th><th>Observación</th></tr>';
  for (const r of rows) {
    html += '<tr class="' + (r.cataloged ? 'yes' : 'no') + '"><td>' + esc(r.sku) +
      '</td><td>' + (r.cataloged ? 'sí' : 'NO') +
      '</td><td>' + esc((r.clean_crumbs || []).join(' > ')) +
      '</td><td>' + esc(r.source) + '</td><td>' + esc(r.mode) +
      '</td><td>' + esc(r.observation || '') + '</td></tr>';
  }
  html += '</table>';
  el('out').innerHTML = html;
}

function esc(s) {
  return String(s).replace(/[&<>"]/g, ch => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[ch]));
}
</script>
</body>
</html>
`
