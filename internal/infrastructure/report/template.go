package report

// digestHTMLTemplate follows the daily-report layout: header, stats grid,
// one card per article with sentiment and rumor badges.
const digestHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
  .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; border-radius: 10px; margin-bottom: 30px; }
  .header h1 { margin: 0; font-size: 28px; }
  .header .date { margin-top: 10px; opacity: 0.9; }
  .stats { background: #f8f9fa; padding: 20px; border-radius: 8px; margin-bottom: 30px; }
  .stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 15px; }
  .stat-item { text-align: center; }
  .stat-value { font-size: 24px; font-weight: bold; color: #667eea; }
  .stat-label { font-size: 12px; color: #666; text-transform: uppercase; }
  .article { background: white; border: 1px solid #e0e0e0; border-radius: 8px; padding: 20px; margin-bottom: 20px; }
  .article-title { font-size: 18px; font-weight: bold; color: #2c3e50; margin: 0 0 10px 0; }
  .article-title a { color: #2c3e50; text-decoration: none; }
  .badge { display: inline-block; padding: 4px 12px; border-radius: 12px; font-size: 11px; font-weight: bold; text-transform: uppercase; margin-right: 8px; }
  .badge-positive { background: #d4edda; color: #155724; }
  .badge-negative { background: #f8d7da; color: #721c24; }
  .badge-neutral { background: #e2e3e5; color: #383d41; }
  .badge-rumor { background: #fff3cd; color: #856404; }
  .meta { font-size: 13px; color: #666; margin-bottom: 10px; }
  .keywords { font-size: 12px; color: #667eea; }
  .empty { text-align: center; color: #666; padding: 40px; }
</style>
</head>
<body>
  <div class="header">
    <h1>HKEX News Digest</h1>
    <div class="date">{{.Date}}</div>
  </div>

  {{if .Articles}}
  {{range .Articles}}
  <div class="article">
    <p class="article-title">{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</p>
    <div>
      <span class="badge badge-{{.Sentiment}}">{{.Sentiment}} {{.Confidence}}</span>
      {{if .IsRumor}}<span class="badge badge-rumor">rumor</span>{{end}}
    </div>
    <div class="meta">
      {{if .Ticker}}{{.Ticker}} · {{end}}{{.PublishedAt}} · relevance {{.Relevance}} · {{join .Sources ", "}}
    </div>
    {{if .Body}}<div>{{.Body}}</div>{{end}}
    {{if .Keywords}}<div class="keywords">{{join .Keywords ", "}}</div>{{end}}
  </div>
  {{end}}
  {{else}}
  <div class="empty">No new articles passed the filters today.</div>
  {{end}}

  <div class="stats">
    <div class="stats-grid">
      <div class="stat-item">
        <div class="stat-value">{{.Stats.TotalArticles}}</div>
        <div class="stat-label">In store</div>
      </div>
      <div class="stat-item">
        <div class="stat-value">{{.Stats.ArticlesToday}}</div>
        <div class="stat-label">Today</div>
      </div>
      <div class="stat-item">
        <div class="stat-value">{{.Stats.Rumors}}</div>
        <div class="stat-label">Rumors</div>
      </div>
    </div>
  </div>
</body>
</html>`
