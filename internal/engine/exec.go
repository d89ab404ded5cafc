package engine

import (
	"context"
	"errors"

	"github.com/yanizio/conductor/internal/binder"
	"github.com/yanizio/conductor/internal/controller"
)

// GetController resolves the destination for the request.  It returns
// (nil, nil) when neither the requested controller nor the configured
// fallback exists; any other resolver error is returned as is.
//
// A successful fallback rewrites the request's group, controller, and
// action so Exec runs against the substituted destination.
func (r *Request) GetController(ctx context.Context) (controller.Controller, error) {
	rc := r.rc
	res := r.app.resolver

	if nameRe.MatchString(rc.Controller) {
		c, err := res.LookupController(ctx, rc.Group+"/"+rc.Controller, rc)
		switch {
		case err == nil && c != nil:
			r.dst = c
			return c, nil
		case err != nil && !errors.Is(err, controller.ErrNotFound):
			return nil, err
		}
	}

	parts := append([]string(nil), r.app.cfg.CallController...)
	if len(parts) == 0 {
		return nil, nil
	}
	action := res.Action(pop(&parts))
	name := res.Controller(pop(&parts))
	group := res.Group(pop(&parts))

	c, err := res.LookupController(ctx, group+"/"+name, rc)
	if err != nil {
		if errors.Is(err, controller.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if _, ok := c.Lookup(action + r.app.cfg.ActionSuffix); !ok {
		return nil, nil
	}

	r.app.log.Debugw("fallback destination",
		"requested", rc.Group+"/"+rc.Controller+"/"+rc.Action,
		"fallback", group+"/"+name+"/"+action,
		"request_id", rc.ID,
	)
	rc.Group, rc.Controller, rc.Action = group, name, action
	r.dst = c
	return c, nil
}

// Exec resolves the controller and runs the requested action.
func (r *Request) Exec(ctx context.Context) error {
	c, err := r.GetController(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		return controllerNotFound(r.rc.Controller)
	}

	short := r.rc.Action
	method := short + r.app.cfg.ActionSuffix
	if !nameRe.MatchString(method) {
		return actionNotValid(short)
	}

	if init, ok := c.(controller.Initializer); ok {
		if err := init.Ready(ctx); err != nil {
			return err
		}
	}

	if act, ok := c.Lookup(method); ok {
		var args []string
		if r.app.cfg.URLParamsBind {
			args = binder.Bind(act.Params, r.rc)
		}
		return r.ExecAction(ctx, c, act, short, method, args)
	}

	if r.app.cfg.CallMethod != "" {
		if caller, ok := c.(controller.Caller); ok {
			return caller.Call(ctx, short, method)
		}
	}
	return actionNotFound(method)
}

// ExecAction runs before → action → after.  A failure skips what follows.
func (r *Request) ExecAction(ctx context.Context, c controller.Controller, act controller.Action, short, method string, args []string) error {
	if r.app.cfg.BeforeActionName != "" {
		if b, ok := c.(controller.BeforeAction); ok {
			if err := b.Before(ctx, short, method); err != nil {
				return err
			}
		}
	}

	if err := act.Fn(ctx, args); err != nil {
		return err
	}

	if r.app.cfg.AfterActionName != "" {
		if a, ok := c.(controller.AfterAction); ok {
			return a.After(ctx, short, method)
		}
	}
	return nil
}

// pop removes and returns the last element, or "" when empty.
func pop(s *[]string) string {
	n := len(*s)
	if n == 0 {
		return ""
	}
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v
}
