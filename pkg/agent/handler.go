package agent

import "github.com/abc0922001/apkupdater/pkg/platform"

type outcomeHandler interface {
	OnSuccess(id int)
	OnFailure(id int)
}

type handlerFuncs struct {
	OnSuccessFunc func(id int)
	OnFailureFunc func(id int)
}

func (fn *handlerFuncs) OnSuccess(id int) {
	if fn.OnSuccessFunc != nil {
		fn.OnSuccessFunc(id)
	}
}

func (fn *handlerFuncs) OnFailure(id int) {
	if fn.OnFailureFunc != nil {
		fn.OnFailureFunc(id)
	}
}

func (a *Agent) defaultHandler() outcomeHandler {
	return &handlerFuncs{
		OnSuccessFunc: a.finalize,
		OnFailureFunc: a.revert,
	}
}

func dispatch(h outcomeHandler, o platform.Outcome) {
	if o.Success {
		h.OnSuccess(o.ID)
	} else {
		h.OnFailure(o.ID)
	}
}
