package viewer

import (
	"net/http"
)

// NewHandler serves the viewer page at / and the event socket at /ws.
func NewHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	return mux
}

const indexHTML = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Análises de chamadas</title>
<style>
body { font-family: sans-serif; margin: 2rem; background: #f6f7f9; }
table { border-collapse: collapse; width: 100%; background: #fff; }
th, td { padding: .5rem; border-bottom: 1px solid #ddd; text-align: left; }
.failed { color: #b00020; }
</style>
</head>
<body>
<h1>Análises de chamadas</h1>
<table>
<thead><tr><th>Hora</th><th>Interação</th><th>Resultado</th><th>Palavras</th><th>Sentimento</th><th>Relatório</th></tr></thead>
<tbody id="events"></tbody>
</table>
<script>
const labels = {positive: "Satisfeito", negative: "Insatisfeito", neutral: "Neutro"};
const tbody = document.getElementById("events");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (m) => {
  const ev = JSON.parse(m.data).event;
  const row = document.createElement("tr");
  const failed = ev.eventType.endsWith("failed");
  const cells = [
    new Date(ev.timestamp).toLocaleTimeString(),
    ev.interactionId,
    failed ? "Falhou em " + ev.stage + ": " + ev.error : "Concluída",
    failed ? "" : ev.totalWords,
    failed ? "" : labels[ev.sentiment] || ev.sentiment,
    failed ? "" : ev.reportFile,
  ];
  for (const c of cells) {
    const td = document.createElement("td");
    td.textContent = c;
    row.appendChild(td);
  }
  if (failed) row.className = "failed";
  tbody.prepend(row);
};
</script>
</body>
</html>
`
