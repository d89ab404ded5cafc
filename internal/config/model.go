// internal/config/model.go
//
// Typed configuration model for conductor.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `CONDUCTOR_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Two keys accept more than one shape in YAML and are normalised by the
// loader rather than by struct tags:
//
//   • `app.call_controller`  – "group:controller:action" or a list,
//   • `cluster.use_cluster`  – bool, worker count, or numeric string.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// App section
//

// App holds the execution-engine switches.
type App struct {
	Mode     string `koanf:"mode"      validate:"omitempty,oneof=cli http"`
	ModeData string `koanf:"mode_data"`
	Debug    bool   `koanf:"debug"`

	ActionSuffix     string `koanf:"action_suffix"`
	URLParamsBind    bool   `koanf:"url_params_bind"`
	CallMethod       string `koanf:"call_method"`
	BeforeActionName string `koanf:"before_action_name"`
	AfterActionName  string `koanf:"after_action_name"`

	// CallController is the fallback destination, rightmost part first
	// consumed.  Filled by the loader from `app.call_controller`.
	CallController []string `koanf:"-"`

	DefaultGroup      string   `koanf:"default_group"      validate:"required"`
	DefaultController string   `koanf:"default_controller" validate:"required"`
	DefaultAction     string   `koanf:"default_action"     validate:"required"`
	GroupList         []string `koanf:"group_list"`

	Encoding     string `koanf:"encoding"       validate:"required"`
	ErrorTplPath string `koanf:"error_tpl_path"`
}

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	Port                     int    `koanf:"port" validate:"required,min=1,max=65535"`
	DenyRemoteAccessByIP     bool   `koanf:"deny_remote_access_by_ip"`
	DenyRemoteAccessWithPort bool   `koanf:"deny_remote_access_with_port"`
	UseWebsocket             bool   `koanf:"use_websocket"`
	CreateServerFn           string `koanf:"create_server_fn"`
	Metrics                  bool   `koanf:"metrics"`
	SecurityHeaders          bool   `koanf:"security_headers"`
	GeoIPDB                  string `koanf:"geoip_db" validate:"omitempty,file"`
}

//
// Cluster section
//

// Cluster is resolved by the loader from `cluster.use_cluster`.  Zero
// means clustering is disabled.
type Cluster struct {
	Workers int `koanf:"-" validate:"min=0"`
}

//
// Routing section
//

// Routing configures the optional alias table consulted before path
// dispatch.  An empty DSN disables alias rewriting.
type Routing struct {
	AliasDSN string        `koanf:"alias_dsn"`
	AliasTTL time.Duration `koanf:"alias_ttl"`
}

//
// Log section
//

// Log selects the zap level and whether to tee to stdout.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // CONDUCTOR_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is built once at startup and passed by pointer into the engine,
// the server, and the supervisor.
type Config struct {
	App     App     `koanf:"app"`
	HTTP    HTTP    `koanf:"http"`
	Cluster Cluster `koanf:"cluster"`
	Routing Routing `koanf:"routing"`
	Log     Log     `koanf:"log"`
	Paths   Paths   `koanf:"-"`
}

// Defaults returns the baseline every file overlays.
func Defaults() Config {
	return Config{
		App: App{
			Mode:              "http",
			ActionSuffix:      "Action",
			URLParamsBind:     true,
			CallMethod:        "__call",
			BeforeActionName:  "__before",
			AfterActionName:   "__after",
			DefaultGroup:      "home",
			DefaultController: "index",
			DefaultAction:     "index",
			GroupList:         []string{"home", "admin", "restful"},
			Encoding:          "utf-8",
		},
		HTTP: HTTP{
			Port:            8360,
			Metrics:         true,
			SecurityHeaders: true,
		},
		Routing: Routing{AliasTTL: 5 * time.Minute},
		Log:     Log{Level: "info"},
	}
}
