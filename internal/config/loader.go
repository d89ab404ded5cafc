// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one `Config` struct from three layers (highest precedence
last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `CONDUCTOR_`, where `__` maps to “.”
     (e.g., `CONDUCTOR_HTTP__PORT → http.port`).

The merged tree is overlaid on `Defaults()`, `vault:` references are
resolved, the two polymorphic keys are normalised, and the result is
validated.  The returned pointer is the one explicit configuration object
handed to the engine, server, and supervisor constructors.  `Get()` keeps
the last loaded copy for the command bootstrap only.

Instrumentation
---------------
  • DEBUG spans – root discovery, YAML read.
  • ERROR spans – YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  – final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const envPrefix = "CONDUCTOR_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves CONDUCTOR_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to the executable heuristic for
// the production layout.
func rootDir() string {
	if r := os.Getenv("CONDUCTOR_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root and delegates to LoadFrom.
func Load() (*Config, error) {
	return LoadFrom(rootDir())
}

// LoadFrom reads .env, YAML, env overrides, resolves vault references,
// validates, and caches the Config.  A missing global.yaml is not an
// error; defaults and env still apply.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: CONDUCTOR_HTTP__PORT → http.port
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveVaultRefs(context.Background(), k); err != nil {
		zap.S().Errorw("config vault resolve failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	if k.Exists("app.call_controller") {
		cfg.App.CallController = CallControllerSpec(k.Get("app.call_controller"))
	}
	workers, err := WorkerCount(k.Get("cluster.use_cluster"), runtime.NumCPU())
	if err != nil {
		zap.S().Errorw("config use_cluster invalid", "err", err)
		return nil, err
	}
	cfg.Cluster.Workers = workers

	cfg.Paths.Root = root
	if cfg.App.ErrorTplPath != "" && !filepath.IsAbs(cfg.App.ErrorTplPath) {
		cfg.App.ErrorTplPath = filepath.Join(root, cfg.App.ErrorTplPath)
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"mode", cfg.App.Mode,
		"port", cfg.HTTP.Port,
		"workers", cfg.Cluster.Workers,
		"websocket", cfg.HTTP.UseWebsocket,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── polymorphic keys ────────────────────────────*/

// CallControllerSpec normalises `app.call_controller` into its ordered
// parts.  A string is split on “:”; a list is taken as is.  Anything else
// yields nil, which disables the fallback.
func CallControllerSpec(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts = strings.Split(v, ":")
	case []string:
		parts = append(parts, v...)
	case []any:
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		return nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// WorkerCount interprets `cluster.use_cluster`.  false, nil, and 0 disable
// clustering; true means one worker per processing unit; integers and
// numeric strings are taken literally.
func WorkerCount(raw any, ncpu int) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case bool:
		if v {
			return ncpu, nil
		}
		return 0, nil
	case int:
		return nonNegative(v)
	case int64:
		return nonNegative(int(v))
	case float64:
		return nonNegative(int(v))
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		switch s {
		case "", "false", "no", "off":
			return 0, nil
		case "true", "yes", "on":
			return ncpu, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("use_cluster %q: %w", v, err)
		}
		return nonNegative(n)
	default:
		return 0, fmt.Errorf("use_cluster: unsupported type %T", raw)
	}
}

func nonNegative(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("use_cluster: negative worker count %d", n)
	}
	return n, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
