package orders

import (
	"context"
	"strings"
)

type actionFunc func(context.Context, Event) error

type actionFactory struct {
	byStatus map[string]actionFunc
}

func newActionFactory(onDispatchable, onCompleted, onCancelled actionFunc) *actionFactory {
	return &actionFactory{
		byStatus: map[string]actionFunc{
			"confirmed":        onDispatchable,
			"processing":       onDispatchable,
			"ready_for_pickup": onDispatchable,
			"packing":          onDispatchable,
			"delivered":        onCompleted,
			"completed":        onCompleted,
			"cancelled":        onCancelled,
			"canceled":         onCancelled,
		},
	}
}

func (f *actionFactory) get(status string) (actionFunc, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	fn, ok := f.byStatus[status]
	return fn, ok
}
