// Package project inspects a checked-out repository to decide how it is built
// and run on the target host.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComposeFileNames are the compose file names recognised at the project root,
// in lookup order.
var ComposeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// DockerfileName is the build file used when no compose file is present.
const DockerfileName = "Dockerfile"

var ErrNoBuildFile = errors.New("no Dockerfile or compose file at the project root")

// Service is one compose service, reduced to what deployment cares about
type Service struct {
	Name  string
	Image string
	Build bool
	Ports []Port
}

// Port is one entry of a service's ports list
type Port struct {
	HostIP    string
	Published string
	Target    string
	Protocol  string
}

// Layout is what the project root contains
type Layout struct {
	Dir           string
	HasDockerfile bool
	// ComposeFile is the name of the compose file, empty when there is none
	ComposeFile string
	Services    []Service
}

// UsesCompose reports whether the project is started with docker compose
func (l *Layout) UsesCompose() bool {
	return l.ComposeFile != ""
}

// ServiceNames lists compose service names
func (l *Layout) ServiceNames() []string {
	names := make([]string, 0, len(l.Services))
	for _, s := range l.Services {
		names = append(names, s.Name)
	}
	return names
}

// PublishesPort reports whether any compose service binds port on the host
func (l *Layout) PublishesPort(port int) bool {
	want := strconv.Itoa(port)
	for _, s := range l.Services {
		for _, p := range s.Ports {
			if p.Published == want {
				return true
			}
		}
	}
	return false
}

// Inspect looks for a compose file or a Dockerfile at the root of dir. A
// compose file must parse and declare at least one service.
func Inspect(dir string) (*Layout, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", dir)
	}

	layout := &Layout{Dir: dir}
	layout.HasDockerfile = isFile(filepath.Join(dir, DockerfileName))

	for _, name := range ComposeFileNames {
		if isFile(filepath.Join(dir, name)) {
			layout.ComposeFile = name
			break
		}
	}

	if layout.ComposeFile == "" {
		if !layout.HasDockerfile {
			return nil, ErrNoBuildFile
		}
		return layout, nil
	}

	services, err := ParseCompose(filepath.Join(dir, layout.ComposeFile))
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("%s declares no services", layout.ComposeFile)
	}
	layout.Services = services
	return layout, nil
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image string      `yaml:"image"`
	Build interface{} `yaml:"build"`
	Ports []yaml.Node `yaml:"ports"`
}

type longPort struct {
	Target    interface{} `yaml:"target"`
	Published interface{} `yaml:"published"`
	HostIP    string      `yaml:"host_ip"`
	Protocol  string      `yaml:"protocol"`
}

// ParseCompose reads the services of a compose file, sorted by name
func ParseCompose(path string) ([]Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	services := make([]Service, 0, len(cf.Services))
	for name, cs := range cf.Services {
		svc := Service{Name: name, Image: cs.Image, Build: cs.Build != nil}
		for i := range cs.Ports {
			p, err := parsePort(&cs.Ports[i])
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", name, err)
			}
			svc.Ports = append(svc.Ports, p)
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

func parsePort(node *yaml.Node) (Port, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return parseShortPort(node.Value), nil
	case yaml.MappingNode:
		var lp longPort
		if err := node.Decode(&lp); err != nil {
			return Port{}, fmt.Errorf("port at line %d: %w", node.Line, err)
		}
		return Port{
			HostIP:    lp.HostIP,
			Published: scalarString(lp.Published),
			Target:    scalarString(lp.Target),
			Protocol:  lp.Protocol,
		}, nil
	default:
		return Port{}, fmt.Errorf("unsupported port entry at line %d", node.Line)
	}
}

// parseShortPort handles [HOST_IP:][HOST:]CONTAINER[/PROTOCOL]
func parseShortPort(s string) Port {
	var p Port
	if i := strings.LastIndex(s, "/"); i >= 0 {
		p.Protocol = s[i+1:]
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		p.Target = parts[0]
	case 2:
		p.Published, p.Target = parts[0], parts[1]
	default:
		n := len(parts)
		p.HostIP = strings.Join(parts[:n-2], ":")
		p.Published, p.Target = parts[n-2], parts[n-1]
	}
	return p
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
