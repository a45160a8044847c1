package alerts

import "html/template"

var criticalTemplate = template.Must(template.New("critical").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #dc3545; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f8f9fa; padding: 20px; border-radius: 0 0 8px 8px; }
    .error-box { background: #fff3cd; border: 1px solid #ffc107; padding: 12px; border-radius: 4px; margin: 16px 0; font-family: monospace; font-size: 13px; white-space: pre-wrap; word-break: break-word; }
    .action-box { background: #d4edda; border: 1px solid #28a745; padding: 12px; border-radius: 4px; margin: 16px 0; }
    .links { margin-top: 20px; }
    .links a { display: inline-block; margin-right: 16px; color: #0066cc; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1 style="margin: 0;">DAINS Alert</h1>
      <p style="margin: 8px 0 0 0; opacity: 0.9;">{{.Subject}}</p>
    </div>
    <div class="content">
      <p><strong>What happened:</strong> {{.Body}}</p>
      {{if .Layer}}<p><strong>Failed at:</strong> Layer {{.Layer}}</p>{{end}}
      {{if .Error}}<div class="error-box"><strong>Error:</strong><br>{{.Error}}</div>{{end}}
      {{if .Action}}<div class="action-box"><strong>Automatic action taken:</strong><br>{{.Action}}</div>{{end}}
      <div class="links">
        <strong>Quick links:</strong><br>
        {{if .WorkflowURL}}<a href="{{.WorkflowURL}}">View Workflow Run</a>{{end}}
        {{if .LiveURL}}<a href="{{.LiveURL}}">Live Page</a>{{end}}
      </div>
      <p style="margin-top: 24px; font-size: 12px; color: #666;">
        This alert was sent by the DAINS Reliability System.<br>
        Time: {{.Time}}
      </p>
    </div>
  </div>
</body>
</html>`))

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #ffc107; color: #333; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f8f9fa; padding: 20px; border-radius: 0 0 8px 8px; }
    ul { padding-left: 20px; }
    li { margin-bottom: 8px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1 style="margin: 0;">DAINS Morning Digest</h1>
      <p style="margin: 8px 0 0 0;">Issues from overnight that auto-resolved</p>
    </div>
    <div class="content">
      <ul>
        {{range .Items}}<li>{{.Icon}} {{.Message}}</li>
        {{end}}
      </ul>
      <p style="margin-top: 24px; font-size: 12px; color: #666;">
        These issues were handled automatically. No action required unless they recur.<br>
        Time: {{.Time}}
      </p>
    </div>
  </div>
</body>
</html>`))

var postTemplate = template.Must(template.New("post").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 700px; margin: 0 auto; padding: 20px; }
    .meta { font-size: 12px; color: #666; border-bottom: 1px solid #e2e8f0; padding-bottom: 12px; margin-bottom: 20px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="meta">
      Test delivery of <strong>{{.Slug}}</strong> published {{.PublishedAt}}
    </div>
    {{.Content}}
  </div>
</body>
</html>`))
