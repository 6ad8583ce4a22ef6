package statsapi

import "net/http"

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(dashboardHTML))
}

// dashboardHTML is a read-only occupancy view of a single pool. Grounded
// on the teacher's dashboard_html.go CSS-variable theme, trimmed from a
// multi-tenant management table down to the gauges a client-side pool
// actually has (no tenants to add, pause, or drain).
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>mysqlpool</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
  :root {
    --bg: #0f1115;
    --panel: #171a21;
    --border: #2a2e38;
    --text: #e6e8eb;
    --muted: #8b909c;
    --accent: #4f8cff;
    --good: #3fbf6f;
    --bad: #e5534b;
  }
  @media (prefers-color-scheme: light) {
    :root {
      --bg: #f6f7f9;
      --panel: #ffffff;
      --border: #dfe3e8;
      --text: #1b1f24;
      --muted: #5b6270;
      --accent: #2060df;
      --good: #1a8f4c;
      --bad: #c0392b;
    }
  }
  body {
    background: var(--bg);
    color: var(--text);
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
    margin: 0;
    padding: 2rem;
  }
  h1 { font-size: 1.25rem; margin-bottom: 1.5rem; }
  .grid {
    display: grid;
    grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
    gap: 1rem;
    max-width: 760px;
  }
  .card {
    background: var(--panel);
    border: 1px solid var(--border);
    border-radius: 8px;
    padding: 1rem;
  }
  .card .label { color: var(--muted); font-size: 0.8rem; text-transform: uppercase; }
  .card .value { font-size: 1.8rem; font-weight: 600; margin-top: 0.25rem; }
  .status { display: inline-block; width: 0.6rem; height: 0.6rem; border-radius: 50%; margin-right: 0.5rem; }
  .status.healthy { background: var(--good); }
  .status.unhealthy { background: var(--bad); }
  #refreshed { color: var(--muted); font-size: 0.8rem; margin-top: 1.5rem; }
  a { color: var(--accent); }
</style>
</head>
<body>
  <h1><span id="statusDot" class="status"></span>mysqlpool</h1>
  <div class="grid">
    <div class="card"><div class="label">Active</div><div class="value" id="active">-</div></div>
    <div class="card"><div class="label">Idle</div><div class="value" id="idle">-</div></div>
    <div class="card"><div class="label">Total</div><div class="value" id="total">-</div></div>
    <div class="card"><div class="label">Waiting</div><div class="value" id="waiting">-</div></div>
    <div class="card"><div class="label">Max size</div><div class="value" id="maxSize">-</div></div>
    <div class="card"><div class="label">Exhausted</div><div class="value" id="exhausted">-</div></div>
  </div>
  <div id="refreshed"></div>
  <p><a href="/metrics">/metrics</a> &middot; <a href="/stats">/stats</a> &middot; <a href="/status">/status</a></p>
  <script>
    async function refresh() {
      try {
        const res = await fetch('/stats');
        const s = await res.json();
        document.getElementById('active').textContent = s.active;
        document.getElementById('idle').textContent = s.idle;
        document.getElementById('total').textContent = s.total;
        document.getElementById('waiting').textContent = s.waiting;
        document.getElementById('maxSize').textContent = s.max_size;
        document.getElementById('exhausted').textContent = s.acquire_timeouts_total;
        const dot = document.getElementById('statusDot');
        dot.className = 'status ' + (s.total > 0 ? 'healthy' : 'unhealthy');
        document.getElementById('refreshed').textContent = 'updated ' + new Date().toLocaleTimeString();
      } catch (e) {
        document.getElementById('statusDot').className = 'status unhealthy';
      }
    }
    refresh();
    setInterval(refresh, 3000);
  </script>
</body>
</html>
`
