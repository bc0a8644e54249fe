package server

import "html/template"

type statusTemplateDevice struct {
	Model   string
	Serial  string
	Path    string
	Used    bool
	Session string
}

type statusTemplateData struct {
	Version     string
	Devices     []statusTemplateDevice
	DeviceCount int
	Log         string

	IsError bool
	Error   string

	CSRFField template.HTML
}

const templateString = `
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no">
  <title>Scarlett daemon status</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", "Roboto", "Helvetica Neue", Arial, sans-serif;
    }

    h1 {
      font-size: 36px;
    }

    p {
      color: #858585;
    }

    #container {
      width: 100%;
    }

    .error {
      border: 1px solid orangered;
      border-radius: 4px;
      min-width: 320px;
      max-width: 500px;
      min-height: 33px;
      margin: 20px auto;
      position: relative;
      color: darkred;
      padding-top: 13px;
    }

    .item {
      border: 1px solid lightgray;
      border-radius: 4px;
      min-width: 320px;
      max-width: 500px;
      min-height: 70px;
      margin: 20px auto;
      position: relative;
      text-align: left;
      padding: 10px 20px;
    }

    .item .serial {
      color: #858585;
      font-size: 13px;
    }

    pre {
      text-align: left;
      max-width: 800px;
      margin: 20px auto;
      font-size: 11px;
      overflow-x: auto;
    }
  </style>
</head>
<body>
  <div id="container" style="text-align: center">
    <h1>Scarlett daemon {{.Version}} is running</h1>

    {{if .IsError}}
    <div class="error">{{.Error}}</div>
    {{end}}

    <p>{{.DeviceCount}} device(s) connected</p>

    {{range .Devices}}
    <div class="item">
      <b>{{.Model}}</b><br>
      <span class="serial">serial {{.Serial}}, at {{.Path}}</span><br>
      {{if .Used}}in use (session {{.Session}}){{else}}idle{{end}}
    </div>
    {{end}}

    <form action="/status/log.gz" method="post">
      {{.CSRFField}}
      <button type="submit">Download detailed log</button>
    </form>

    <pre>{{.Log}}</pre>
  </div>
</body>
</html>
`

var statusTemplate = template.Must(template.New("status").Parse(templateString))
