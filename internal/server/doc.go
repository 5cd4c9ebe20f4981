// Package server implements the echost HTTP server: the middleware chain
// (request id, request logging, security headers, identity resolution), the
// login/register/logout and upload routes, and file serving. It also provides
// the lifecycle helpers used by tests and the production binary.
package server
