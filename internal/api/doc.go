// Package api exposes the task service over HTTP. Handlers only translate
// between JSON and the task and importer packages; every rule lives there.
package api
