// controllers/home/index.go
//
// Demo controller at home/index.
//
// Shows the controller surface end to end:
//
//   - indexAction     – default destination, JSON welcome.
//   - helloAction     – parameters bound by name from query or body.
//   - notfoundAction  – target of app.call_controller ("home:index:notfound").
//   - __before        – stamps X-Handled-By on every action.
//   - __call          – answers unknown actions with 404 instead of an error.
//
// Actions finalise their own response with rc.End().
package home

import (
	"context"
	"net/http"

	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/core"
)

func init() {
	controller.Register("home", "index", newIndex)
}

// compile-time assertions
var (
	_ controller.Controller   = (*Index)(nil)
	_ controller.BeforeAction = (*Index)(nil)
	_ controller.Caller       = (*Index)(nil)
)

// Index is built fresh for every request.
type Index struct {
	controller.Base
	rc *core.Context
}

func newIndex(rc *core.Context) (controller.Controller, error) {
	c := &Index{rc: rc}
	c.Handle("indexAction", nil, c.index)
	c.HandleSig("helloAction", "(name /* who to greet */, lang)", c.hello)
	c.Handle("notfoundAction", nil, c.notFound)
	return c, nil
}

func (c *Index) index(_ context.Context, _ []string) error {
	c.rc.SetHeader("Content-Type", "application/json")
	if err := c.rc.Echo(map[string]string{
		"message":   "conductor is running",
		"transport": string(c.rc.Transport),
	}); err != nil {
		return err
	}
	return c.rc.End()
}

func (c *Index) hello(_ context.Context, args []string) error {
	name, lang := controller.Arg(args, 0), controller.Arg(args, 1)
	if name == "" {
		name = "world"
	}
	greeting := "Hello"
	if lang == "es" {
		greeting = "Hola"
	}
	if err := c.rc.Echo(greeting + ", " + name); err != nil {
		return err
	}
	return c.rc.End()
}

func (c *Index) notFound(_ context.Context, _ []string) error {
	c.rc.SetStatus(http.StatusNotFound)
	if err := c.rc.Echo("not found"); err != nil {
		return err
	}
	return c.rc.End()
}

// Before implements controller.BeforeAction.
func (c *Index) Before(_ context.Context, _, method string) error {
	c.rc.SetHeader("X-Handled-By", "home/index."+method)
	return nil
}

// Call implements controller.Caller.
func (c *Index) Call(ctx context.Context, _, _ string) error {
	return c.notFound(ctx, nil)
}
