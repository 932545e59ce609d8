// Package intents declares the typed messages flowing through the
// dispatcher. State actions are reduced synchronously by the store; effect
// intents are picked up asynchronously by the epics. A single intent may be
// both (GenerationFinished updates status and fans out follow-up fetches).
package intents

import (
	"github.com/go-playground/validator/v10"
)

// Intent is a dispatchable message.
type Intent interface {
	Validate() error
}

var validate = validator.New()

// ToastLevel selects the notification styling.
type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastError ToastLevel = "error"
)
