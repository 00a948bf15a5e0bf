//go:build e2e

package e2e

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

// fixtureSQL builds a tiny dataset in the layout of hawaii.sqlite.
const fixtureSQL = `
CREATE TABLE station (id INTEGER NOT NULL, station VARCHAR(32), name VARCHAR(255), latitude FLOAT, longitude FLOAT, elevation FLOAT, PRIMARY KEY (id));
CREATE TABLE measurement (id INTEGER NOT NULL, station VARCHAR(32), date VARCHAR(10), prcp FLOAT, tobs FLOAT, PRIMARY KEY (id));
INSERT INTO station (station, name) VALUES ('USC00519397', 'WAIKIKI 717.2, HI US'), ('USC00519281', 'WAIHEE 837.5, HI US');
INSERT INTO measurement (station, date, prcp, tobs) VALUES
  ('USC00519281', '2017-08-21', 0.1, 79),
  ('USC00519281', '2017-08-22', 0.5, 80),
  ('USC00519281', '2017-08-23', 0.0, 81),
  ('USC00519397', '2017-08-23', NULL, 82);
`

func TestSmoke_Routes(t *testing.T) {
	repoRoot := repoRootPath(t)

	sqlitePath := startSQLite(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"ENV_FILE="+filepath.Join(t.TempDir(), "missing.env"),
		"CONFIG_FILE=",
		"MQTT_BROKER=",

		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+sqlitePath,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 5 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)

	t.Run("home", func(t *testing.T) {
		body := get(t, client, base+"/", http.StatusOK)
		if !strings.Contains(body, "/api/v1.0/precipitation") {
			t.Fatalf("home page does not list routes: %s", body)
		}
	})

	t.Run("precipitation", func(t *testing.T) {
		var got map[string]*float64
		decode(t, get(t, client, base+"/api/v1.0/precipitation", http.StatusOK), &got)
		if len(got) != 3 {
			t.Fatalf("dates=%d want=3: %v", len(got), got)
		}
	})

	t.Run("stations", func(t *testing.T) {
		var got []string
		decode(t, get(t, client, base+"/api/v1.0/stations", http.StatusOK), &got)
		if len(got) != 2 {
			t.Fatalf("stations=%v want 2 entries", got)
		}
	})

	t.Run("tobs", func(t *testing.T) {
		var got struct {
			Image string `json:"image"`
		}
		decode(t, get(t, client, base+"/api/v1.0/tobs", http.StatusOK), &got)
		png, err := base64.StdEncoding.DecodeString(got.Image)
		if err != nil {
			t.Fatalf("decode image: %v", err)
		}
		if !strings.HasPrefix(string(png), "\x89PNG") {
			t.Fatalf("image is not a PNG")
		}
	})

	t.Run("stats range", func(t *testing.T) {
		body := get(t, client, base+"/api/v1.0/2017-08-22/2017-08-23", http.StatusOK)
		if strings.TrimSpace(body) != `{"avg":81,"max":82,"min":80}` {
			t.Fatalf("body=%s", body)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		get(t, client, base+"/api/v1.0/not-a-date", http.StatusBadRequest)
	})

	stopServer(t, cmd)
}

func get(t *testing.T, client *http.Client, url string, wantStatus int) string {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status=%d want=%d body=%s", url, resp.StatusCode, wantStatus, b)
	}
	return string(b)
}

func decode(t *testing.T, body string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decode json: %v\n%s", err, body)
	}
}

func startSQLite(t *testing.T) string {
	t.Helper()

	// Host temp dir that will contain hawaii.sqlite
	hostDir := t.TempDir()
	dbPath := filepath.Join(hostDir, "hawaii.sqlite")

	if err := os.WriteFile(filepath.Join(hostDir, "fixture.sql"), []byte(fixtureSQL), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:      "nouchka/sqlite3:latest",
		WorkingDir: "/data",
		Entrypoint: []string{"sh", "-c"},
		Cmd: []string{
			"sqlite3 /data/hawaii.sqlite < /data/fixture.sql && " +
				"chmod 644 /data/hawaii.sqlite && " +
				"echo 'sqlite ready' && " +
				"tail -f /dev/null",
		},

		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, hostDir+":/data")
		},
		WaitingFor: wait.ForLog("sqlite ready").WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start sqlite container: %v", err)
	}

	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("sqlite db file not created: %v", err)
	}

	return dbPath
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "surfsup-server")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
