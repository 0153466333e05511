// Package http holds the chi HTTP handlers for the file registry, the
// analysis-job registry, and service health. Errors render as RFC 7807
// problem documents; success payloads render as JSON via go-chi/render,
// except the chart endpoint which serves MessagePack.
package http
