package web

import (
	"html/template"
	"io"

	"codeberg.org/mutker/powermon/internal/logger"
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Power Monitor</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.stale { color: orange; }
button { font-family: monospace; padding: 0.4em 1em; margin-right: 0.5em; cursor: pointer; }
.controls { margin-top: 1.5em; }
</style>
</head>
<body>
<h1>Power Monitor <span class="on">&#9679;</span></h1>

<h2>Session</h2>
<table>
<tr><th>Power on since</th><td>{{.Since}}{{if not .ClockValid}} <span class="stale">(clock not synced)</span>{{end}}</td></tr>
<tr><th>Current session</th><td>{{.Session}}</td></tr>
<tr><th>Last downtime</th><td>{{.LastDowntime}}</td></tr>
</table>

<h2>Today</h2>
<table>
<tr><th>Uptime</th><td>{{.TodayUptime}}</td></tr>
<tr><th>Downtime</th><td>{{.TodayDowntime}}</td></tr>
<tr><th>Outages</th><td>{{.Outages}}</td></tr>
<tr><th>Longest outage</th><td>{{.LongestOutage}}</td></tr>
</table>

<h2>Daily uptime (hours)</h2>
<table>
{{range $i, $d := .Weekdays}}<tr><th>{{$d}}</th><td>{{printf "%.1f" (index $.WeeklyUptime $i)}}</td></tr>
{{end}}</table>

<div class="controls">
<button onclick="window.location='/logs'">Download Logs</button>
<button onclick="clearData()">Clear Data</button>
</div>

<script>
async function clearData() {
  if (confirm("Clear all data?")) {
    await fetch('/clear', {method:'POST'});
    location.reload();
  }
}
setTimeout(() => location.reload(), 10000);
</script>
</body>
</html>
`

func renderHTML(w io.Writer, st Status) {
	if err := indexTmpl.Execute(w, st); err != nil {
		logger.Debug().Err(err).Msg("Template render failed")
	}
}
