package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sonar-sensor/internal/ranging"
	"github.com/sweeney/sonar-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s ranging.EchoState) string {
		switch s {
		case ranging.EchoOK:
			return "ok"
		case ranging.EchoNextOK:
			return "next"
		}
		return "bad"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sonar Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.distance { font-size: 2em; font-weight: bold; }
.ok { color: green; font-weight: bold; }
.next { color: #888; }
.bad { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Sonar Sensor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Distance</h2>
<table>
<tr><th>Fused</th><td class="distance"><span id="distance">{{.DistanceCM}}</span> cm</td></tr>
<tr><th>Left</th><td><span id="left-state" class="{{stateClass .Reading.Left.State}}">{{.Reading.Left.State}}</span> <span id="left-cm">{{.LeftCM}}</span> cm</td></tr>
<tr><th>Right</th><td><span id="right-state" class="{{stateClass .Reading.Right.State}}">{{.Reading.Right.State}}</span> <span id="right-cm">{{.RightCM}}</span> cm</td></tr>
<tr><th>Cycles</th><td id="cycles">{{.Counts.Cycles}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Echo Counts</h2>
<table>
<tr><th></th><th>Left</th><th>Right</th></tr>
<tr><th>OK</th><td>{{.Counts.Left.OK}}</td><td>{{.Counts.Right.OK}}</td></tr>
<tr><th>NEXT_OK</th><td>{{.Counts.Left.NextOK}}</td><td>{{.Counts.Right.NextOK}}</td></tr>
<tr><th>LOST</th><td>{{.Counts.Left.Lost}}</td><td>{{.Counts.Right.Lost}}</td></tr>
<tr><th>LONG</th><td>{{.Counts.Left.Long}}</td><td>{{.Counts.Right.Long}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickPeriod}}</td></tr>
<tr><th>Cadence</th><td>{{.Config.CadenceTicks}} ticks</td></tr>
<tr><th>Max</th><td>{{.Config.Params.MaxTicks}} ticks</td></tr>
<tr><th>Smoothing</th><td>{{.Config.Params.SmoothingFactor}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
{{if .Config.SerialPort}}<tr><th>Serial</th><td>{{.Config.SerialPort}}</td></tr>{{end}}
{{if .Config.Simulated}}<tr><th>Mode</th><td>simulated</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function stateClass(s) {
    return s === "OK" ? "ok" : s === "NEXT_OK" ? "next" : "bad";
  }

  function setSensor(side, s) {
    var el = document.getElementById(side + "-state");
    el.textContent = s.state;
    el.className = stateClass(s.state);
    document.getElementById(side + "-cm").textContent = s.distance_cm;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        document.getElementById("distance").textContent = msg.distance_cm;
        document.getElementById("cycles").textContent = msg.cycle;
        setSensor("left", msg.left);
        setSensor("right", msg.right);
      } catch (e) {}
    };
  }

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has methods but the template is easier to read with plain fields.
	conv := snap.Config.Converter
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		Ready      bool
		DistanceCM int64
		LeftCM     int64
		RightCM    int64
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		Ready:      snap.Ready(),
		DistanceCM: conv.Centimeters(snap.Reading.Distance),
		LeftCM:     conv.Centimeters(snap.Reading.Left.Distance),
		RightCM:    conv.Centimeters(snap.Reading.Right.Distance),
	}
	indexTmpl.Execute(w, data)
}
