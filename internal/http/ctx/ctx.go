package ctx

import (
	"github.com/valyala/fasthttp"

	"narrify/internal/gate"
)

const (
	UserKey   = "user"
	AccessKey = "access"
)

func SetUser(ctx *fasthttp.RequestCtx, user any) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (any, bool) {
	v := ctx.UserValue(UserKey)
	if v == nil {
		return nil, false
	}
	return v, true
}

// SetAccess stores the successful key validation result so handlers can
// read the authorized tenant and key without re-validating.
func SetAccess(ctx *fasthttp.RequestCtx, res gate.Result) {
	ctx.SetUserValue(AccessKey, res)
}

func AccessFromCtx(ctx *fasthttp.RequestCtx) (gate.Result, bool) {
	v := ctx.UserValue(AccessKey)
	if v == nil {
		return gate.Result{}, false
	}
	res, ok := v.(gate.Result)
	return res, ok
}
