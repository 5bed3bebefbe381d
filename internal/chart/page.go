package chart

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jgoulah/capplot/pkg/models"
)

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"num": func(f float64) string { return fmt.Sprintf("%g", f) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: sans-serif; background: #fff; }
main { display: flex; flex-direction: column; align-items: center; padding: 12px; }
svg { max-width: 100%; height: auto; }
dl { display: grid; grid-template-columns: auto auto; gap: 2px 12px; font-size: 13px; color: #444; }
dt { font-weight: bold; }
</style>
</head>
<body>
<main>
{{.SVG}}
<dl id="summary">
<dt>Records</dt><dd>{{.Summary.Count}}</dd>
{{- if .Summary.Count}}
<dt>Span</dt><dd>{{num .Summary.FirstTime}} – {{num .Summary.LastTime}}</dd>
<dt>Capacity</dt><dd>{{num .Summary.MinCapacity}} – {{num .Summary.MaxCapacity}}</dd>
<dt>Resizes</dt><dd>{{.Summary.Resizes}} ({{.Summary.Growths}} up, {{.Summary.Shrinks}} down)</dd>
{{- end}}
</dl>
</main>
</body>
</html>
`))

type pageData struct {
	Title   string
	SVG     template.HTML
	Summary models.Summary
}

// Page renders a standalone html document showing the chart and a short
// summary of the records
func (r *Renderer) Page(records []models.Record) ([]byte, error) {
	svg, err := r.SVG(records)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:   r.opts.Title,
		SVG:     template.HTML(svg),
		Summary: models.Summarize(records),
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}

	return buf.Bytes(), nil
}
