package api

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mediatasks/internal/task"
)

const refreshSeconds = 3

var uiTemplates = template.Must(template.New("layout").Parse(`{{define "head"}}
<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  {{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}};url={{.RefreshURL}}"/>{{end}}
  <title>Media tasks</title>
  <style>
    body{font-family:system-ui,sans-serif;max-width:760px;margin:32px auto;padding:0 16px;background:#fafafa}
    h1{font-size:22px}
    a{color:#0b63e5}
    .card{background:#fff;border:1px solid #e9e9e9;border-radius:10px;padding:16px;margin:12px 0}
    .row{display:flex;gap:12px}
    .btn{background:#0b63e5;color:#fff;border:none;padding:10px 14px;border-radius:8px;cursor:pointer}
    input[type=text]{padding:9px 10px;border:1px solid #dcdcdc;border-radius:8px;flex:1}
    .muted{color:#666}
    .mono{font-family:ui-monospace,monospace}
    .status{padding:4px 8px;border-radius:6px;background:#efefef;font-size:12px}
    .error{border-color:#f2b8b5;background:#fff6f6;color:#b3261e}
  </style>
</head>
<body>
  <h1><a href="/">Media tasks</a></h1>
{{end}}

{{define "home"}}
  {{template "head" .}}
  {{if .Error}}<div class="card error">{{.Error}}</div>{{end}}
  <div class="card">
    <h2>Download audio</h2>
    <form method="get" action="/">
      <div class="row">
        <input type="text" name="url" placeholder="https://www.youtube.com/watch?v=..." required />
        <button class="btn" type="submit">Start</button>
      </div>
      <label><input type="checkbox" name="autoUpload" value="false"/> keep the file here, do not upload</label>
    </form>
  </div>
  <div class="card muted">
    JSON endpoints: <span class="mono">/audio</span>, <span class="mono">/video</span>,
    <span class="mono">/subtitles</span>, <span class="mono">/title</span>, <span class="mono">/task/{id}</span>
  </div>
</body></html>
{{end}}

{{define "task"}}
  {{template "head" .}}
  <div class="card">
    <h2>Task <span class="mono">{{.View.ID}}</span></h2>
    <div>Status: <span class="status">{{.View.Status}}</span></div>
    {{if .View.Title}}<div>Title: <strong>{{.View.Title}}</strong></div>{{end}}
    {{if .View.Message}}<div>{{.View.Message}}</div>{{end}}
    {{if .View.Error}}<div class="card error">{{.View.Error}}</div>{{end}}
    {{if .View.FileName}}<div><a href="/get-audio-file/{{.View.FileName}}">Download {{.View.FileName}}</a></div>{{end}}
    {{if .Refresh}}<div class="muted">Refreshing every {{.Refresh}}s</div>{{end}}
  </div>
</body></html>
{{end}}
`))

type taskView struct {
	ID       string
	Status   task.Status
	Title    string
	FileName string
	Message  string
	Error    string
}

func newTaskView(t task.Task) taskView {
	v := taskView{ID: t.ID, Status: t.Status()}
	if res, ok := t.Result(); ok {
		v.Title, v.FileName, v.Message = res.Title, res.FileName, res.Message
	}
	if msg, ok := t.Error(); ok {
		v.Error = msg
	}
	return v
}

// RegisterUIRoutes registers the HTML form and the audio status page
func (a *API) RegisterUIRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(uiTemplates)
	router.GET("/", a.UIHome)
	router.GET("/ui/tasks/:id", a.UITask)
}

// UIHome renders the form; with ?url= it submits an audio task and renders its status page
func (a *API) UIHome(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.HTML(http.StatusOK, "home", gin.H{})
		return
	}
	var q mediaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.HTML(http.StatusBadRequest, "home", gin.H{"Error": "please enter a valid URL"})
		return
	}
	id := a.submitAudio(q.URL, parseAutoUpload(c.Query(autoUploadParam)))
	a.renderTask(c, id)
}

// UITask renders a task page
func (a *API) UITask(c *gin.Context) {
	a.renderTask(c, c.Param("id"))
}

func (a *API) renderTask(c *gin.Context, id string) {
	t, err := a.tasks.GetTask(id)
	if errors.Is(err, task.ErrTaskNotFound) {
		c.HTML(http.StatusNotFound, "home", gin.H{"Error": "Task not found"})
		return
	}
	data := gin.H{"View": newTaskView(t)}
	if !task.IsTerminal(t.State) {
		data["Refresh"] = refreshSeconds
		data["RefreshURL"] = "/ui/tasks/" + t.ID
	}
	c.HTML(http.StatusOK, "task", data)
}
