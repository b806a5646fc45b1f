package web

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// view is everything the page template needs.
type view struct {
	Identifier   string
	HasDocument  bool
	ReuploadFlow bool
	Message      string
	Error        string
	StorageKey   string
	BatchJSON    string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>ArgoXai &mdash; XHTML annotation</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.error { color: #b00020; }
.message { color: #1b5e20; }
pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; }
form { margin: 1rem 0; }
</style>
</head>
<body>
<h1>ArgoXai</h1>
<h2>XHTML annotation</h2>

{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Message}}<p class="message">{{.Message}}</p>{{end}}

<form method="post" action="/fetch">
  <label>Company number
    <input type="text" name="identifier" value="{{.Identifier}}">
  </label>
  <button type="submit">Retrieve XHTML and convert to PDF</button>
</form>

{{if .HasDocument}}
<p><a href="/document">Download PDF</a></p>

{{if .ReuploadFlow}}
<form method="post" action="/document" enctype="multipart/form-data">
  <label>Annotated PDF
    <input type="file" name="document" accept="application/pdf">
  </label>
  <button type="submit">Upload annotated document</button>
</form>
{{end}}

<form method="post" action="/publish">
  <button type="submit">Upload annotations</button>
</form>
{{end}}

{{if .StorageKey}}<p>Stored as <code>{{.StorageKey}}</code></p>{{end}}
{{if .BatchJSON}}<pre>{{.BatchJSON}}</pre>{{end}}
</body>
</html>
`))

// render writes the page. Template failures are logged, not shown.
func (s *Server) render(w http.ResponseWriter, v view) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, v); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}
