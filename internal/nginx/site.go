// Package nginx renders the reverse-proxy site that fronts a deployed
// application.
package nginx

import (
	"bytes"
	"fmt"
	"path"
	"text/template"
)

const DefaultSiteName = "default"

var siteTemplate = template.Must(template.New("site").Parse(`server {
    listen 80;
    server_name {{ .ServerName }} _;

    location / {
        proxy_pass http://127.0.0.1:{{ .Port }};
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection 'upgrade';
        proxy_set_header Host $host;
        proxy_cache_bypass $http_upgrade;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
}
`))

// Site is one proxied application
type Site struct {
	Name       string
	ServerName string
	Port       int
}

// Paths locates site files on the target host
type Paths struct {
	SitesAvailable string
	SitesEnabled   string
}

// Render produces the site configuration text
func (s Site) Render() (string, error) {
	if s.ServerName == "" {
		return "", fmt.Errorf("site %s: empty server name", s.Name)
	}
	if s.Port < 1 || s.Port > 65535 {
		return "", fmt.Errorf("site %s: port %d out of range", s.Name, s.Port)
	}
	var buf bytes.Buffer
	if err := siteTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render site %s: %w", s.Name, err)
	}
	return buf.String(), nil
}

// Available is the path of the site file for name
func (p Paths) Available(name string) string {
	return path.Join(p.SitesAvailable, name)
}

// Enabled is the path of the enabled-site link for name
func (p Paths) Enabled(name string) string {
	return path.Join(p.SitesEnabled, name)
}

// DefaultEnabled is the distribution's default site link
func (p Paths) DefaultEnabled() string {
	return p.Enabled(DefaultSiteName)
}
