// Package provision is the catalogue of shell commands run on the target
// host: tool installation, container lifecycle and proxy site management.
// Every script runs after the remote preamble, so $SUDO is available and the
// first failing line aborts the script.
package provision

import (
	"fmt"
	"path"
	"strconv"

	"vps-deploy/internal/nginx"
	"vps-deploy/internal/remote"
)

// ProjectDir is the project directory on the target. An empty base means
// the SSH user's home directory.
func ProjectDir(base, project string) string {
	if base == "" {
		return "$HOME/" + project
	}
	return path.Join(base, project)
}

// Ping checks that commands can be run at all
func Ping() remote.Command {
	return remote.Command{Name: "ping", Script: "true\n"}
}

// EnsureDocker installs Docker when missing and starts its service
func EnsureDocker() remote.Command {
	return remote.Command{
		Name: "ensure-docker",
		Script: `if command -v docker >/dev/null 2>&1; then
  echo "docker already installed"
else
  echo "installing docker"
  curl -fsSL https://get.docker.com | $SUDO sh
fi
$SUDO systemctl enable docker
$SUDO systemctl start docker
`,
	}
}

// EnsureCompose installs the Docker Compose plugin when neither the plugin
// nor the standalone binary is present.
func EnsureCompose() remote.Command {
	return remote.Command{
		Name: "ensure-compose",
		Script: `if $SUDO docker compose version >/dev/null 2>&1; then
  echo "docker compose already installed"
elif command -v docker-compose >/dev/null 2>&1; then
  echo "docker-compose already installed"
elif command -v apt-get >/dev/null 2>&1; then
  echo "installing docker compose"
  $SUDO apt-get update -y
  $SUDO env DEBIAN_FRONTEND=noninteractive apt-get install -y docker-compose-plugin
elif command -v dnf >/dev/null 2>&1; then
  $SUDO dnf install -y docker-compose-plugin
elif command -v yum >/dev/null 2>&1; then
  $SUDO yum install -y docker-compose-plugin
else
  echo "no supported package manager to install docker compose" >&2
  exit 1
fi
`,
	}
}

// EnsureNginx installs Nginx when missing and starts its service
func EnsureNginx() remote.Command {
	return remote.Command{
		Name: "ensure-nginx",
		Script: `if command -v nginx >/dev/null 2>&1; then
  echo "nginx already installed"
elif command -v apt-get >/dev/null 2>&1; then
  echo "installing nginx"
  $SUDO apt-get update -y
  $SUDO env DEBIAN_FRONTEND=noninteractive apt-get install -y nginx
elif command -v dnf >/dev/null 2>&1; then
  $SUDO dnf install -y nginx
elif command -v yum >/dev/null 2>&1; then
  $SUDO yum install -y nginx
else
  echo "no supported package manager to install nginx" >&2
  exit 1
fi
$SUDO systemctl enable nginx
$SUDO systemctl start nginx
`,
	}
}

// StopProjectContainers force-removes every container whose name matches
// project. Finding none, or no docker at all, is not an error.
func StopProjectContainers(project string) remote.Command {
	return remote.Command{
		Name: "stop-containers",
		Script: fmt.Sprintf(`command -v docker >/dev/null 2>&1 || { echo "docker not installed"; exit 0; }
ids=$($SUDO docker ps -aq --filter %s)
if [ -n "$ids" ]; then
  $SUDO docker rm -f $ids
else
  echo "no containers to remove"
fi
`, remote.Quote("name="+project)),
	}
}

// ComposeUp builds and starts the compose project in dir
func ComposeUp(dir string) remote.Command {
	return remote.Command{
		Name: "compose-up",
		Script: fmt.Sprintf(`cd "%s"
if $SUDO docker compose version >/dev/null 2>&1; then
  $SUDO docker compose up -d --build
else
  $SUDO docker-compose up -d --build
fi
`, dir),
	}
}

// DockerBuild builds the image tagged project from the Dockerfile in dir
func DockerBuild(dir, project string) remote.Command {
	return remote.Command{
		Name:   "docker-build",
		Script: fmt.Sprintf("cd \"%s\"\n$SUDO docker build -t %s .\n", dir, remote.Quote(project)),
	}
}

// DockerRun starts the project image with the port published on the host
func DockerRun(project string, port int) remote.Command {
	mapping := strconv.Itoa(port) + ":" + strconv.Itoa(port)
	return remote.Command{
		Name: "docker-run",
		Script: fmt.Sprintf("$SUDO docker run -d --name %s --restart unless-stopped -p %s %s\n",
			remote.Quote(project), mapping, remote.Quote(project)),
	}
}

// ContainerRunning fails unless a running container matches project. The
// matching names are printed.
func ContainerRunning(project string) remote.Command {
	return remote.Command{
		Name: "container-running",
		Script: fmt.Sprintf(`names=$($SUDO docker ps --filter %s --filter status=running --format '{{.Names}}')
if [ -z "$names" ]; then
  echo "no running container matches %s" >&2
  exit 1
fi
echo "$names"
`, remote.Quote("name="+project), project),
	}
}

// ContainerLogs prints the recent logs of every container matching project
func ContainerLogs(project string) remote.Command {
	return remote.Command{
		Name: "container-logs",
		Script: fmt.Sprintf(`for id in $($SUDO docker ps -aq --filter %s); do
  echo "--- $id"
  $SUDO docker logs --tail 100 "$id" 2>&1
done
`, remote.Quote("name="+project)),
	}
}

// WriteSite writes the rendered site to sites-available
func WriteSite(paths nginx.Paths, name, content string) remote.Command {
	return remote.Command{
		Name: "write-site",
		Script: fmt.Sprintf("$SUDO mkdir -p %s\n$SUDO tee %s >/dev/null\n",
			remote.Quote(paths.SitesAvailable), remote.Quote(paths.Available(name))),
		Stdin: []byte(content),
	}
}

// EnableSite links the site into sites-enabled
func EnableSite(paths nginx.Paths, name string) remote.Command {
	return remote.Command{
		Name: "enable-site",
		Script: fmt.Sprintf("$SUDO mkdir -p %s\n$SUDO ln -sf %s %s\n",
			remote.Quote(paths.SitesEnabled), remote.Quote(paths.Available(name)), remote.Quote(paths.Enabled(name))),
	}
}

// RemoveDefaultSite drops the distribution's default site link
func RemoveDefaultSite(paths nginx.Paths) remote.Command {
	return remote.Command{
		Name:   "remove-default-site",
		Script: fmt.Sprintf("$SUDO rm -f %s\n", remote.Quote(paths.DefaultEnabled())),
	}
}

// NginxTest checks the proxy configuration
func NginxTest() remote.Command {
	return remote.Command{Name: "nginx-test", Script: "$SUDO nginx -t\n"}
}

// NginxReload reloads the proxy configuration
func NginxReload() remote.Command {
	return remote.Command{Name: "nginx-reload", Script: "$SUDO systemctl reload nginx\n"}
}

// ServiceActive fails unless the systemd unit is active
func ServiceActive(service string) remote.Command {
	return remote.Command{
		Name:   service + "-active",
		Script: fmt.Sprintf("systemctl is-active --quiet %s\n", remote.Quote(service)),
	}
}

// LocalProbe requests http://127.0.0.1:port/ on the target and prints the
// status code.
func LocalProbe(port int) remote.Command {
	return remote.Command{
		Name:   "probe-" + strconv.Itoa(port),
		Script: fmt.Sprintf("curl -s -o /dev/null -w '%%{http_code}' --max-time 10 http://127.0.0.1:%d/\n", port),
	}
}

// RemoveImages deletes images built for project, plain or compose-named
func RemoveImages(project string) remote.Command {
	return remote.Command{
		Name: "remove-images",
		Script: fmt.Sprintf(`command -v docker >/dev/null 2>&1 || { echo "docker not installed"; exit 0; }
ids=$($SUDO docker images -q --filter %s --filter %s --filter %s | sort -u)
if [ -n "$ids" ]; then
  $SUDO docker rmi -f $ids
else
  echo "no images to remove"
fi
`, remote.Quote("reference="+project), remote.Quote("reference="+project+"-*"), remote.Quote("reference="+project+"_*")),
	}
}

// RemoveSite deletes the site files and reloads a running proxy
func RemoveSite(paths nginx.Paths, name string) remote.Command {
	return remote.Command{
		Name: "remove-site",
		Script: fmt.Sprintf(`$SUDO rm -f %s %s
if command -v nginx >/dev/null 2>&1 && systemctl is-active --quiet nginx; then
  $SUDO systemctl reload nginx
fi
`, remote.Quote(paths.Enabled(name)), remote.Quote(paths.Available(name))),
	}
}

// RemoveProjectDir deletes the uploaded project tree
func RemoveProjectDir(dir string) remote.Command {
	return remote.Command{
		Name:   "remove-project-dir",
		Script: fmt.Sprintf("rm -rf \"%s\" 2>/dev/null || $SUDO rm -rf \"%s\"\n", dir, dir),
	}
}
