package http

import "net/http"

// handleIndex renders the single-page UI. It posts to /api/ask and
// follows /api/state/stream.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Link-A-Verse</title>
    <style>
        body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
        .card { border: 1px solid #dce0e5; border-radius: 8px; padding: 12px; margin: 8px 0; }
        .ref { font-weight: bold; }
        .link, .hint { color: #6b7280; font-size: 0.9em; }
        .error { color: #e53935; }
    </style>
</head>
<body>
    <h1>Link-A-Verse</h1>
    <form id="ask-form" onsubmit="ask(event)">
        <input type="text" id="question" placeholder="Ask a Bible question" autocomplete="off">
        <input type="text" id="theme" placeholder="Theme (default Sabbath)">
        <button type="submit">Search</button>
        <div id="input-error" class="error"></div>
    </form>
    <div id="output"><p class="hint">No results yet. Ask a question above.</p></div>

    <script>
        function ask(e) {
            e.preventDefault();
            const question = document.getElementById('question').value;
            const inputError = document.getElementById('input-error');
            if (!question.trim()) {
                inputError.textContent = 'Please enter a question';
                return;
            }
            inputError.textContent = '';
            fetch('/api/ask', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({question: question, theme: document.getElementById('theme').value})
            });
        }

        function escapeHtml(text) {
            const div = document.createElement('div');
            div.textContent = text == null ? '' : text;
            return div.innerHTML;
        }

        function render(state) {
            const out = document.getElementById('output');
            switch (state.view) {
            case 'loading':
                out.innerHTML = '<p class="hint">Searching...</p>';
                return;
            case 'failed':
                out.innerHTML = '<p class="error">' + escapeHtml(state.error) + '</p>';
                return;
            case 'idle':
                out.innerHTML = '<p class="hint">No results yet. Ask a question above.</p>';
                return;
            }
            let html = '<h2>' + escapeHtml(state.result.theme) + '</h2><p><em>' + escapeHtml(state.result.summary) + '</em></p>';
            if (state.result.chain.length === 0) {
                html += '<p class="hint">No passages returned for this question.</p>';
            }
            for (const v of state.result.chain) {
                html += '<div class="card"><div class="ref">' + escapeHtml(v.reference) + '</div>' +
                    '<div>' + escapeHtml(v.text) + '</div>' +
                    '<div class="link">' + escapeHtml(v.linkingPhrase) + '</div>';
                for (const c of v.crossThemeConnections) {
                    html += '<div class="hint">[' + escapeHtml(c.theme) + '] ' + escapeHtml(c.reference) + ': ' + escapeHtml(c.text) + '</div>';
                }
                html += '</div>';
            }
            out.innerHTML = html;
        }

        const stream = new EventSource('/api/state/stream');
        stream.onmessage = function(event) {
            render(JSON.parse(event.data));
        };
    </script>
</body>
</html>`
