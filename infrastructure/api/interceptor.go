package api

import (
	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/pkg/errors"
)

// Interceptor is the cross-cutting error stage applied to every network
// effect, composed before request-specific failure handling so specific
// handlers only ever see genuinely unexpected errors.
type Interceptor struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewInterceptor creates the classifier stage.
func NewInterceptor(dispatcher Dispatcher, logger *zap.Logger) *Interceptor {
	return &Interceptor{dispatcher: dispatcher, logger: logger}
}

// Intercept classifies err and emits the matching global transition.
// It reports true when the error was fully consumed (auth redirects are
// terminal: the caller must stop, with no failure path of its own). A
// network error sets the offline flag but reports false, so the caller's
// more specific handler still runs.
func (i *Interceptor) Intercept(err error) bool {
	if err == nil {
		return false
	}
	switch errors.GetType(err) {
	case errors.ErrorTypeUnauthorized:
		i.logger.Info("Session unauthorized, redirecting to sign-in")
		i.dispatcher.Dispatch(intents.RedirectToSignIn{})
		return true
	case errors.ErrorTypeForbidden:
		i.logger.Info("Session forbidden, redirecting")
		i.dispatcher.Dispatch(intents.RedirectToForbidden{})
		return true
	case errors.ErrorTypeNetwork:
		i.dispatcher.Dispatch(intents.SetOffline{Offline: true})
		return false
	default:
		return false
	}
}
