package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/output"
	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/core/service"
	"github.com/yndnr/guardian/internal/device/devicetest"
	"github.com/yndnr/guardian/internal/device/volume"
	"github.com/yndnr/guardian/internal/server/httpserver"
	"github.com/yndnr/guardian/internal/telemetry/logger"
	"github.com/yndnr/guardian/internal/telemetry/metric"
	"github.com/yndnr/guardian/pkg/keydigest"
)

func init() {
	output.SetColor(false)
}

var testHash = keydigest.Sum([]byte("test_key_data"))

type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs the CLI with args and captures its output.
func runApp(t *testing.T, stdin io.Reader, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = stdin
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"guardian"}, args...))
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// writeScripts creates every response script under dir/nix.
func writeScripts(t *testing.T, dir string, skip ...string) {
	t.Helper()
	platform := filepath.Join(dir, "nix")
	if err := os.MkdirAll(platform, 0o755); err != nil {
		t.Fatal(err)
	}
	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for _, code := range domain.ScriptCodes() {
		if skipped[code] {
			continue
		}
		path := filepath.Join(platform, code+".sh")
		if err := os.WriteFile(path, []byte("#!/bin/sh\necho "+code+"\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func writeConfig(t *testing.T, scriptDir string, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardian.yaml")
	doc := fmt.Sprintf(`auth:
  expected_key_hash: %s
  key_id: test_key_id
dispatch:
  script_dir: %s
  platform_dir: nix
device:
  backend: placeholder
  wait_timeout: 50ms
  command_timeout: 50ms
  retry_interval: 10ms
http:
  addr: ""
log:
  level: error
  format: text
%s`, testHash, scriptDir, extra)
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "guardian" {
		t.Errorf("Name = %q", app.Name)
	}

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"run", "check", "status", "devices", "digest", "volume", "emulate", "version"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}

	flags := make(map[string]bool)
	for _, f := range app.Flags {
		flags[f.Names()[0]] = true
	}
	for _, want := range []string{"config", "server", "output", "no-color"} {
		if !flags[want] {
			t.Errorf("missing flag %q", want)
		}
	}
}

func TestApp_BadOutputFormat(t *testing.T) {
	r := runApp(t, nil, "-o", "xml", "version")
	if r.err == nil || !strings.Contains(r.err.Error(), "xml") {
		t.Errorf("error = %v, want unknown format", r.err)
	}
}

func TestDigest(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("test_key_data"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := runApp(t, nil, "digest", keyFile)
	if r.err != nil {
		t.Fatalf("digest error = %v", r.err)
	}
	if strings.TrimSpace(r.stdout) != testHash {
		t.Errorf("digest = %q, want %q", r.stdout, testHash)
	}

	r = runApp(t, strings.NewReader("test_key_data"), "digest", "-")
	if strings.TrimSpace(r.stdout) != testHash {
		t.Errorf("stdin digest = %q", r.stdout)
	}

	long := append(bytes.Repeat([]byte{'k'}, keydigest.MaxKeyBytes), []byte("ignored tail")...)
	r = runApp(t, bytes.NewReader(long), "digest")
	if strings.TrimSpace(r.stdout) != keydigest.Sum(long[:keydigest.MaxKeyBytes]) {
		t.Error("only the first KiB should count")
	}

	if r := runApp(t, nil, "digest", filepath.Join(t.TempDir(), "missing")); r.err == nil {
		t.Error("missing file should fail")
	}
}

func TestVolumeInitSendDigest(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("test_key_data"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := runApp(t, nil, "volume", "init", "--id", "test_key_id", "--key-file", keyFile, dir)
	if r.err != nil {
		t.Fatalf("volume init error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "expected_key_hash: "+testHash) {
		t.Errorf("init output = %q", r.stdout)
	}

	m, err := volume.ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.ID != "test_key_id" || m.Name != "test_key_id" || m.Type != "token" {
		t.Errorf("manifest = %+v", m)
	}

	r = runApp(t, nil, "volume", "init", "--id", "other", dir)
	if exitCode(r.err) != 1 {
		t.Errorf("second init exit = %d, want 1 without --force", exitCode(r.err))
	}

	r = runApp(t, nil, "digest", "--volume", dir)
	if strings.TrimSpace(r.stdout) != testHash {
		t.Errorf("volume digest = %q", r.stdout)
	}

	r = runApp(t, nil, "volume", "send", dir, "FORMAT_DISK")
	if r.err != nil {
		t.Fatalf("volume send error = %v", r.err)
	}
	if !strings.Contains(r.stderr, "not a known command") {
		t.Errorf("stderr = %q, want unknown command warning", r.stderr)
	}

	entries, err := os.ReadDir(filepath.Join(dir, volume.MetaDir, volume.InboxDir))
	if err != nil || len(entries) != 1 {
		t.Fatalf("inbox entries = %v, %v", entries, err)
	}
}

func TestCheck(t *testing.T) {
	scripts := t.TempDir()
	writeScripts(t, scripts)
	cfgPath := writeConfig(t, scripts, "")

	r := runApp(t, nil, "--config", cfgPath, "check", "--show-config")
	if r.err != nil {
		t.Fatalf("check error = %v\n%s", r.err, r.stdout)
	}
	if !strings.Contains(r.stdout, "✓ configuration valid") {
		t.Errorf("stdout = %s", r.stdout)
	}
	if strings.Contains(r.stdout, testHash) {
		t.Error("--show-config must mask the expected digest")
	}
	if strings.Count(r.stdout, "✓ script") != len(domain.ScriptCodes()) {
		t.Errorf("stdout = %s", r.stdout)
	}
}

func TestCheck_MissingScript(t *testing.T) {
	scripts := t.TempDir()
	writeScripts(t, scripts, "lu")
	cfgPath := writeConfig(t, scripts, "")

	r := runApp(t, nil, "--config", cfgPath, "check")
	if exitCode(r.err) != 1 {
		t.Errorf("exit = %d, want 1", exitCode(r.err))
	}
	if !strings.Contains(r.stdout, "✗ script lu") {
		t.Errorf("stdout = %s", r.stdout)
	}
}

func TestCheck_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  expected_key_hash: nothex\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := runApp(t, nil, "--config", path, "check")
	if exitCode(r.err) != 1 {
		t.Errorf("exit = %d, want 1", exitCode(r.err))
	}
	if !strings.Contains(r.stdout, "✗ configuration") {
		t.Errorf("stdout = %s", r.stdout)
	}
}

func testDaemonURL(t *testing.T) string {
	t.Helper()
	log, _ := logger.New(logger.Config{Level: "error", Output: io.Discard})
	dir := devicetest.NewDirectory().
		Add(devicetest.NewToken("test_key_id", nil)).
		Add(devicetest.NewChannel(domain.Descriptor{Name: "backup", ID: "disk-1", Type: domain.DeviceStorage}, nil))
	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Status:  service.NewStatusTracker(),
		Devices: dir,
		Metrics: metric.NewRegistry(),
		Logger:  log,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestStatus(t *testing.T) {
	url := testDaemonURL(t)

	r := runApp(t, nil, "--server", url, "status")
	if r.err != nil {
		t.Fatalf("status error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "state") || !strings.Contains(r.stdout, "idle") {
		t.Errorf("stdout = %s", r.stdout)
	}

	r = runApp(t, nil, "--server", url, "-o", "json", "status")
	if !strings.Contains(r.stdout, `"state": "idle"`) {
		t.Errorf("json stdout = %s", r.stdout)
	}
}

func TestStatus_Unreachable(t *testing.T) {
	r := runApp(t, nil, "--server", "127.0.0.1:1", "status")
	if r.err == nil {
		t.Error("expected error for unreachable daemon")
	}
}

func TestDevices_Remote(t *testing.T) {
	url := testDaemonURL(t)

	r := runApp(t, nil, "--server", url, "devices")
	if r.err != nil {
		t.Fatalf("devices error = %v", r.err)
	}
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("stdout = %q", r.stdout)
	}
	if !strings.Contains(lines[2], "storage") {
		t.Errorf("row = %q", lines[2])
	}

	r = runApp(t, nil, "--server", url, "-o", "yaml", "devices")
	if !strings.Contains(r.stdout, "id: test_key_id") {
		t.Errorf("yaml stdout = %s", r.stdout)
	}
}

func TestDevices_Root(t *testing.T) {
	root := t.TempDir()
	if _, err := volume.Provision(filepath.Join(root, "KEY"), volume.Manifest{ID: "key-01"}, []byte("k")); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "USBDISK"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := runApp(t, nil, "-o", "json", "devices", "--root", root)
	if r.err != nil {
		t.Fatalf("devices error = %v", r.err)
	}
	if !strings.Contains(r.stdout, `"id": "key-01"`) || !strings.Contains(r.stdout, `"type": "storage"`) {
		t.Errorf("stdout = %s", r.stdout)
	}

	empty := runApp(t, nil, "devices", "--root", t.TempDir())
	if strings.TrimSpace(empty.stdout) != "no devices" {
		t.Errorf("empty root stdout = %q", empty.stdout)
	}
}

func TestDevices_WaitTimeout(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "OLD"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := runApp(t, nil, "devices", "--root", root, "--wait", "--timeout", "100ms")
	if exitCode(r.err) != 1 {
		t.Errorf("exit = %d, want 1", exitCode(r.err))
	}
	if !strings.Contains(r.stderr, "no new volume") {
		t.Errorf("stderr = %q", r.stderr)
	}

	if r := runApp(t, nil, "devices", "--wait"); exitCode(r.err) != 2 {
		t.Errorf("--wait without --root exit = %d, want 2", exitCode(r.err))
	}
}

func TestVersion(t *testing.T) {
	r := runApp(t, nil, "-o", "json", "version")
	if r.err != nil {
		t.Fatalf("version error = %v", r.err)
	}
	if !strings.Contains(r.stdout, `"go_version"`) {
		t.Errorf("stdout = %s", r.stdout)
	}

	r = runApp(t, nil, "--server", testDaemonURL(t), "-o", "yaml", "version", "--remote")
	if r.err != nil || !strings.Contains(r.stdout, "platform:") {
		t.Errorf("remote version = %q, %v", r.stdout, r.err)
	}
}

func TestEmulate_BadType(t *testing.T) {
	r := runApp(t, nil, "emulate", "--id", "x", "--type", "printer")
	if exitCode(r.err) != 2 {
		t.Errorf("exit = %d, want 2", exitCode(r.err))
	}
}

func TestDaemon_BridgeEndToEnd(t *testing.T) {
	scripts := t.TempDir()
	writeScripts(t, scripts)
	marker := filepath.Join(scripts, "locked")
	script := filepath.Join(scripts, "nix", "sl.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ntouch '"+marker+"'\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	socket := filepath.Join(t.TempDir(), "bridge.sock")
	cfgPath := writeConfig(t, scripts, "")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.Device.Backend = "bridge"
	cfg.Device.Bridge.SocketPath = socket
	cfg.Device.WaitTimeout = time.Second
	cfg.Device.CommandTimeout = 200 * time.Millisecond
	cfg.HTTP.Addr = "127.0.0.1:0"

	log, _ := logger.New(logger.Config{Level: "error", Output: io.Discard})
	d, err := newDaemon(cfg, log, metric.NewRegistry())
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	h := newTestShutdown(t, log)
	if err := d.start(h, ""); err != nil {
		t.Fatalf("start: %v", err)
	}

	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("test_key_data"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r := make(chan result, 1)
	go func() {
		var out, errOut bytes.Buffer
		app := App()
		app.Writer, app.ErrWriter = &out, &errOut
		app.ExitErrHandler = func(*cli.Context, error) {}
		err := app.RunContext(ctx, []string{"guardian", "emulate",
			"--socket", socket, "--id", "test_key_id", "--key-file", keyFile,
			"--command", "LOCK_SCREEN"})
		r <- result{stdout: out.String(), stderr: errOut.String(), err: err}
	}()

	select {
	case res := <-r:
		if res.err != nil {
			t.Fatalf("emulate error = %v\n%s", res.err, res.stderr)
		}
		if !strings.Contains(res.stderr, "detached") {
			t.Errorf("emulate stderr = %q", res.stderr)
		}
	case <-ctx.Done():
		t.Fatal("emulated session did not finish")
	}

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("LOCK_SCREEN script did not run: %v", err)
	}
	st := d.status.Snapshot()
	if st.Sessions != 1 || st.Commands != 1 || st.LastCommand != "LOCK_SCREEN" {
		t.Errorf("status = %+v", st)
	}

	h.Trigger()
	if err := h.Wait(); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Errorf("socket should be removed on shutdown, stat err = %v", err)
	}
}

func TestReloadLogLevel(t *testing.T) {
	scripts := t.TempDir()
	cfgPath := writeConfig(t, scripts, "")
	log, _ := logger.New(logger.Config{Level: "error", Output: io.Discard})
	t.Cleanup(func() { logger.SetLevel("info") })

	if err := os.WriteFile(cfgPath, bytes.Replace(mustRead(t, cfgPath), []byte("level: error"), []byte("level: debug"), 1), 0o600); err != nil {
		t.Fatal(err)
	}
	reloadLogLevel(cfgPath, log)
	if logger.GetLevel() != "debug" {
		t.Errorf("level = %s, want debug", logger.GetLevel())
	}

	if err := os.WriteFile(cfgPath, []byte("auth: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	reloadLogLevel(cfgPath, log)
	if logger.GetLevel() != "debug" {
		t.Error("a broken file must not change the level")
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestLoadConfig_Example(t *testing.T) {
	_, err := loadConfig(filepath.Join("..", "..", "..", "config.example.yaml"))
	if err == nil || !strings.Contains(err.Error(), "expected_key_hash") {
		t.Errorf("loadConfig(example) error = %v, want missing digest", err)
	}
}
