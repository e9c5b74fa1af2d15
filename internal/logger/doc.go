// Package logger wraps zap with a global sugared logger and context helpers.
//
// Services receive a context and log through it, so request-scoped fields
// (request id, device id, fence id) added with WithKV travel with the call.
package logger
