package health

import (
	"bytes"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ok": func(s string) bool { return s == "connected" || s == "disabled" },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>FarmOracle Ledger · Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="15">
  <style>
    body { background: #F6F8F4; color: #1F3A2B; font-family: system-ui, sans-serif; margin: 0; display: flex; justify-content: center; padding: 40px 16px; }
    .card { width: 100%; max-width: 860px; background: #fff; border-radius: 20px; box-shadow: 0 20px 60px -20px rgba(31,58,43,.15); overflow: hidden; }
    h1 { margin: 0; padding: 32px 36px 8px; font-size: 36px; letter-spacing: -1px; }
    h1.issue { color: #C0392B; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 24px 36px; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 800; letter-spacing: 2px; color: #8A9A90; margin-bottom: 14px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; font-size: 14px; font-weight: 600; border-bottom: 1px solid #F0F2EE; }
    .pill-ok { color: #2E7D4F; } .pill-err { color: #C0392B; }
    footer { background: #FAFBF9; padding: 14px 36px; font-family: monospace; font-size: 13px; display: flex; justify-content: space-between; }
    a { color: #2E7D4F; }
    @media (max-width: 760px) { .grid { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
<div class="card">
  <h1 class="{{.Status}}">{{if eq .Status "ok"}}All Systems Operational{{else}}System Issues Detected{{end}}</h1>
  <div class="grid">
    <div class="col">
      <div class="label">Traffic</div>
      <div class="row"><span>Requests</span><span>{{.Traffic.TotalRequests}}</span></div>
      <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
      <div class="row"><span>Conflicts</span><span>{{.Traffic.Conflicts}}</span></div>
      <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
      <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}}ms</span></div>
    </div>
    <div class="col">
      <div class="label">Ledger</div>
      {{with .Ledger}}
      <div class="row"><span>Listings</span><span>{{.Listings}}</span></div>
      <div class="row"><span>Undelivered Events</span><span>{{.EventBacklog}}</span></div>
      {{else}}
      <div class="row"><span>Unavailable</span><span>-</span></div>
      {{end}}
      <div class="row"><span>Uptime</span><span>{{.Runtime.UptimeSeconds}}s</span></div>
      <div class="row"><span>Heap Used</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
      <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
    </div>
    <div class="col">
      <div class="label">Connectivity</div>
      {{range $name, $dep := .Dependencies}}
      <div class="row"><span>{{$name}}</span><span class="{{if ok $dep.Status}}pill-ok{{else}}pill-err{{end}}">{{$dep.Status}}{{with $dep.PingMs}} · {{.}} ms{{end}}</span></div>
      {{end}}
    </div>
  </div>
  <footer><span>{{.Runtime.Platform}} · {{.Runtime.GoVersion}}</span><a href="/health/errors">error log</a></footer>
</div>
</body>
</html>`))

// RenderDashboardHTML returns the HTML for GET /.
func RenderDashboardHTML(health CollectResult) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, health); err != nil {
		return "", err
	}
	return buf.String(), nil
}
