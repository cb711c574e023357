package http

import (
	"html/template"
	"log/slog"
	nethttp "net/http"
)

var pages = template.Must(template.New("").Parse(`
{{define "open"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<p>{{.Notice}}</p>
<p><a href="{{.URL}}" target="_blank" rel="noopener">Open tool</a></p>
</body>
</html>{{end}}
{{define "error"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Launch failed</title></head>
<body>
<h1>Launch failed</h1>
<p>{{.Message}}</p>
</body>
</html>{{end}}
`))

var errorMessages = map[string]string{
	"authdisabled":             "LTI authentication is disabled on this site.",
	"enroldisabled":            "LTI enrolment is disabled on this site.",
	"invalidtool":              "This tool does not exist or is not enabled.",
	"cannot retrieve identity": "Unable to retrieve ID Token.",
	"cannot resolve user":      "Unable to set up your account.",
	"invalid context":          "Invalid context.",
	"maxenrolledreached":       "The maximum number of enrolled users has been reached.",
	"enrolmentnotstarted":      "Enrolment has not started yet.",
	"enrolmentfinished":        "Enrolment has finished.",
}

func renderError(w nethttp.ResponseWriter, status int, reason string) {
	msg, ok := errorMessages[reason]
	if !ok {
		msg = "An error occurred while launching the tool."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "error", struct{ Message string }{msg}); err != nil {
		slog.Error("render error page", "err", err)
	}
}

const frameEmbeddingNotEnabled = "This site does not allow embedding in frames. Use the link below to open the tool in a new window."

func renderOpen(w nethttp.ResponseWriter, title, url string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Title, Notice, URL string }{title, frameEmbeddingNotEnabled, url}
	if err := pages.ExecuteTemplate(w, "open", data); err != nil {
		slog.Error("render open page", "err", err)
	}
}
