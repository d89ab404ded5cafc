package engine

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/hook"
	"github.com/yanizio/conductor/internal/routing"
)

/*──────────────────────────── fixtures ────────────────────────────────────*/

// probe records every capability call in order.
type probe struct {
	controller.Base
	rc        *core.Context
	calls     *[]string
	beforeErr error
}

func (p *probe) Before(_ context.Context, _, method string) error {
	*p.calls = append(*p.calls, "before:"+method)
	return p.beforeErr
}

func (p *probe) After(_ context.Context, _, method string) error {
	*p.calls = append(*p.calls, "after:"+method)
	return nil
}

// callerProbe adds the catch-all capability.
type callerProbe struct{ probe }

func (p *callerProbe) Call(_ context.Context, action, method string) error {
	*p.calls = append(*p.calls, "call:"+action+":"+method)
	return nil
}

type fixture struct {
	t     *testing.T
	app   config.App
	http  config.HTTP
	reg   *controller.Registry
	hooks *hook.Pipeline
	calls []string
}

func newFixture(t *testing.T) *fixture {
	d := config.Defaults()
	return &fixture{
		t:     t,
		app:   d.App,
		http:  d.HTTP,
		reg:   controller.NewRegistry(),
		hooks: hook.Empty(),
	}
}

// blog registers home/blog with viewAction(id) and panicAction.
func (f *fixture) blog(beforeErr error) {
	f.reg.Register("home", "blog", func(rc *core.Context) (controller.Controller, error) {
		p := &probe{rc: rc, calls: &f.calls, beforeErr: beforeErr}
		p.HandleSig("viewAction", "(id)", func(_ context.Context, args []string) error {
			id := "<unbound>"
			if len(args) > 0 {
				id = args[0]
			}
			f.calls = append(f.calls, "action:"+id)
			return nil
		})
		p.HandleSig("sumAction", "(a, b, c)", func(_ context.Context, args []string) error {
			f.calls = append(f.calls, args...)
			return nil
		})
		p.Handle("panicAction", nil, func(context.Context, []string) error {
			panic("boom")
		})
		p.Handle("failAction", nil, func(context.Context, []string) error {
			_ = rc.End()
			return errors.New("after end")
		})
		return p, nil
	})
}

func (f *fixture) build() *App {
	return New(Options{
		App:      f.app,
		HTTP:     f.http,
		Resolver: routing.NewDispatcher(f.app, f.reg, nil),
		Hooks:    f.hooks,
		Log:      zaptest.NewLogger(f.t).Sugar(),
		Version:  "test",
	})
}

func request(path string) (*core.Context, *core.Recorder) {
	rec := core.NewRecorder()
	rc := core.New(core.TransportHTTP, rec)
	rc.Path = path
	rc.Host = "example.com"
	rc.Hostname = "example.com"
	return rc, rec
}

/*──────────────────────────── lifecycle ───────────────────────────────────*/

func TestBeforeActionAfterOrder(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	rc, rec := request("/blog/view")
	rc.Query["id"] = "7"

	out := f.build().Listen(context.Background(), rc)

	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, []string{"before:viewAction", "action:7", "after:viewAction"}, f.calls)
	assert.Equal(t, "conductor-test", rec.Headers.Get("X-Powered-By"))
	assert.Zero(t, rec.EndCount(), "success path leaves finalisation to the action")
}

func TestBeforeFailureSkipsActionAndAfter(t *testing.T) {
	f := newFixture(t)
	denied := errors.New("denied")
	f.blog(denied)
	rc, rec := request("/blog/view")

	out := f.build().Listen(context.Background(), rc)

	assert.ErrorIs(t, out.Err, denied)
	assert.Equal(t, []string{"before:viewAction"}, f.calls)
	assert.Equal(t, 1, rec.EndCount())
}

func TestDisabledHookNames(t *testing.T) {
	f := newFixture(t)
	f.app.BeforeActionName = ""
	f.app.AfterActionName = ""
	f.blog(errors.New("never"))
	rc, _ := request("/blog/view")

	out := f.build().Listen(context.Background(), rc)

	require.False(t, out.Failed())
	assert.Equal(t, []string{"action:"}, f.calls)
}

func TestInvalidActionRunsNothing(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	rc, rec := request("/blog/bad-name")

	out := f.build().Listen(context.Background(), rc)

	assert.ErrorIs(t, out.Err, ErrActionNotValid)
	assert.EqualError(t, out.Err, "action `bad-name` is not valid")
	assert.Equal(t, KindValidation, KindOf(out.Err))
	assert.Empty(t, f.calls)
	assert.Equal(t, 1, rec.EndCount())
}

func TestGlobalHooksShortCircuit(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	var tags []string
	for _, tag := range hook.Tags {
		tag := tag
		f.hooks.Register(tag, func(context.Context, *core.Context) error {
			tags = append(tags, string(tag))
			if tag == hook.AppBegin {
				return errors.New("stop")
			}
			return nil
		})
	}
	rc, rec := request("/blog/view")

	out := f.build().Listen(context.Background(), rc)

	assert.ErrorContains(t, out.Err, "stop")
	assert.Equal(t, []string{"app_init", "app_begin"}, tags)
	assert.Empty(t, f.calls)
	assert.Equal(t, 1, rec.EndCount())
}

func TestGlobalHooksFullOrder(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	for _, tag := range hook.Tags {
		tag := tag
		f.hooks.Register(tag, func(context.Context, *core.Context) error {
			f.calls = append(f.calls, string(tag))
			return nil
		})
	}
	rc, _ := request("/blog/view")

	require.False(t, f.build().Listen(context.Background(), rc).Failed())
	assert.Equal(t, []string{
		"app_init", "app_begin", "action_init",
		"before:viewAction", "action:", "after:viewAction",
		"app_end",
	}, f.calls)
}

func TestCancellationMidRequestRunsToEnd(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.hooks.Register(hook.AppBegin, func(context.Context, *core.Context) error {
		cancel()
		return nil
	})
	f.hooks.Register(hook.AppEnd, func(context.Context, *core.Context) error {
		f.calls = append(f.calls, "app_end")
		return nil
	})
	rc, rec := request("/blog/view")

	out := f.build().Listen(ctx, rc)

	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, []string{
		"before:viewAction", "action:", "after:viewAction", "app_end",
	}, f.calls)
	assert.Empty(t, rec.String(), "no error page")
	assert.Zero(t, rec.EndCount())
}

/*──────────────────────────── binding ─────────────────────────────────────*/

func TestBindingRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.app.BeforeActionName, f.app.AfterActionName = "", ""
	f.blog(nil)
	rc, _ := request("/blog/sum")
	rc.Body["a"] = "1"
	rc.Query["b"] = "2"

	require.False(t, f.build().Listen(context.Background(), rc).Failed())
	assert.Equal(t, []string{"1", "2", ""}, f.calls)
}

func TestBindingDisabled(t *testing.T) {
	f := newFixture(t)
	f.app.BeforeActionName, f.app.AfterActionName = "", ""
	f.app.URLParamsBind = false
	f.blog(nil)
	rc, _ := request("/blog/view")
	rc.Query["id"] = "7"

	require.False(t, f.build().Listen(context.Background(), rc).Failed())
	assert.Equal(t, []string{"action:<unbound>"}, f.calls)
}

/*──────────────────────────── resolution ──────────────────────────────────*/

func TestControllerNotFound(t *testing.T) {
	f := newFixture(t)
	rc, rec := request("/missingPage/view")

	out := f.build().Listen(context.Background(), rc)

	assert.ErrorIs(t, out.Err, ErrControllerNotFound)
	assert.EqualError(t, out.Err, "controller `missingPage` not found")
	assert.Equal(t, KindResolution, KindOf(out.Err))
	assert.Equal(t, 1, rec.EndCount())
}

func TestFallbackController(t *testing.T) {
	f := newFixture(t)
	f.app.CallController = config.CallControllerSpec("home:index:notfound")
	f.reg.Register("home", "index", func(rc *core.Context) (controller.Controller, error) {
		p := &probe{rc: rc, calls: &f.calls}
		p.Handle("notfoundAction", nil, func(context.Context, []string) error {
			f.calls = append(f.calls, "notfound")
			return nil
		})
		return p, nil
	})
	rc, _ := request("/missingPage/whatever")

	out := f.build().Listen(context.Background(), rc)

	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, "home", rc.Group)
	assert.Equal(t, "index", rc.Controller)
	assert.Equal(t, "notfound", rc.Action)
	assert.Equal(t, []string{"before:notfoundAction", "notfound", "after:notfoundAction"}, f.calls)
}

func TestFallbackWithoutActionKeepsOriginalName(t *testing.T) {
	f := newFixture(t)
	f.app.CallController = []string{"home", "index", "notfound"}
	f.reg.Register("home", "index", func(rc *core.Context) (controller.Controller, error) {
		return &probe{rc: rc, calls: &f.calls}, nil
	})
	rc, _ := request("/missingPage")

	out := f.build().Listen(context.Background(), rc)

	assert.EqualError(t, out.Err, "controller `missingPage` not found")
	assert.Equal(t, "missingPage", rc.Controller)
}

func TestFallbackForInvalidControllerName(t *testing.T) {
	f := newFixture(t)
	f.app.CallController = []string{"", "notfound"}
	f.reg.Register("home", "index", func(rc *core.Context) (controller.Controller, error) {
		p := &probe{rc: rc, calls: &f.calls}
		p.Handle("notfoundAction", nil, func(context.Context, []string) error { return nil })
		return p, nil
	})
	rc, _ := request("/bad-ctrl/view")

	out := f.build().Listen(context.Background(), rc)

	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, "index", rc.Controller)
	assert.Equal(t, "notfound", rc.Action)
}

func TestActionNotFound(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	rc, _ := request("/blog/list")

	out := f.build().Listen(context.Background(), rc)

	assert.ErrorIs(t, out.Err, ErrActionNotFound)
	assert.EqualError(t, out.Err, "action `listAction` not found")
}

func TestCatchAll(t *testing.T) {
	f := newFixture(t)
	f.reg.Register("home", "wild", func(rc *core.Context) (controller.Controller, error) {
		return &callerProbe{probe{rc: rc, calls: &f.calls}}, nil
	})

	rc, _ := request("/wild/list")
	require.False(t, f.build().Listen(context.Background(), rc).Failed())
	assert.Equal(t, []string{"call:list:listAction"}, f.calls)

	f.calls = nil
	f.app.CallMethod = ""
	rc, _ = request("/wild/list")
	assert.ErrorIs(t, f.build().Listen(context.Background(), rc).Err, ErrActionNotFound)
	assert.Empty(t, f.calls)
}

func TestFactoryErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.app.CallController = []string{"home", "index", "notfound"}
	boom := errors.New("factory failed")
	f.reg.Register("home", "broken", func(*core.Context) (controller.Controller, error) {
		return nil, boom
	})
	rc, _ := request("/broken/view")

	assert.ErrorIs(t, f.build().Listen(context.Background(), rc).Err, boom)
}

func TestReadyErrorFailsRequest(t *testing.T) {
	f := newFixture(t)
	f.reg.Register("home", "slow", func(rc *core.Context) (controller.Controller, error) {
		p := &probe{rc: rc, calls: &f.calls}
		p.Handle("indexAction", nil, func(context.Context, []string) error {
			f.calls = append(f.calls, "action")
			return nil
		})
		p.Construct(func() error { return errors.New("warmup failed") })
		return p, nil
	})
	rc, _ := request("/slow")

	out := f.build().Listen(context.Background(), rc)

	assert.EqualError(t, out.Err, "warmup failed")
	assert.Empty(t, f.calls)
}

/*──────────────────────────── reporting ───────────────────────────────────*/

func TestProductionFallbackPage(t *testing.T) {
	f := newFixture(t)
	rc, rec := request("/missingPage")

	f.build().Listen(context.Background(), rc)

	assert.Equal(t, fallbackErrorPage, rec.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Headers.Get("Content-Type"))
	assert.NotContains(t, rec.String(), "missingPage")
}

func TestProductionErrorPageFile(t *testing.T) {
	f := newFixture(t)
	page := filepath.Join(t.TempDir(), "error.html")
	require.NoError(t, os.WriteFile(page, []byte("<h1>Oops</h1>"), 0o644))
	f.app.ErrorTplPath = page
	rc, rec := request("/missingPage")

	f.build().Listen(context.Background(), rc)

	assert.Equal(t, "<h1>Oops</h1>", rec.String())
	assert.Equal(t, 1, rec.EndCount())
}

func TestDebugWritesRawError(t *testing.T) {
	f := newFixture(t)
	f.app.Debug = true
	rc, rec := request("/missingPage")

	f.build().Listen(context.Background(), rc)

	assert.Equal(t, "controller `missingPage` not found", rec.String())
	assert.Equal(t, 1, rec.EndCount())
}

func TestDebugPanicIncludesStack(t *testing.T) {
	f := newFixture(t)
	f.app.Debug = true
	f.blog(nil)
	rc, rec := request("/blog/panic")

	out := f.build().Listen(context.Background(), rc)

	assert.NotEmpty(t, out.Stack)
	assert.Contains(t, rec.String(), "panic: boom")
	assert.Contains(t, rec.String(), "goroutine")
	assert.Equal(t, 1, rec.EndCount())
}

func TestEndAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.blog(nil)
	rc, rec := request("/blog/fail")

	out := f.build().Listen(context.Background(), rc)

	assert.EqualError(t, out.Err, "after end")
	assert.Equal(t, 1, rec.EndCount())
	assert.Empty(t, rec.String(), "no error body after the action ended")
}

func TestFailureWithoutSink(t *testing.T) {
	f := newFixture(t)
	rc := core.New(core.TransportCLI, nil)
	rc.Path = "/missingPage"

	out := f.build().Listen(context.Background(), rc)
	assert.ErrorIs(t, out.Err, ErrControllerNotFound)
}

/*──────────────────────────── remote access ───────────────────────────────*/

func TestDenyRemoteAccessWithPort(t *testing.T) {
	f := newFixture(t)
	f.http.DenyRemoteAccessWithPort = true
	f.blog(nil)
	f.hooks.Register(hook.AppInit, func(context.Context, *core.Context) error {
		f.calls = append(f.calls, "app_init")
		return nil
	})
	rc, rec := request("/blog/view")
	rc.Host = "example.com:8360"

	out := f.build().Listen(context.Background(), rc)

	assert.False(t, out.Failed())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.String())
	assert.Equal(t, 1, rec.EndCount())
	assert.Empty(t, f.calls, "lifecycle never started")
}

func TestDenyRemoteAccessAllowsMatchingHost(t *testing.T) {
	f := newFixture(t)
	f.http.DenyRemoteAccessWithPort = true
	f.blog(nil)
	rc, rec := request("/blog/view")

	require.False(t, f.build().Listen(context.Background(), rc).Failed())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.calls, "action:")
}
